package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies the errors produced by a run
type Kind string

const (
	KindExtraction        Kind = "extraction"
	KindAction            Kind = "action"
	KindSourceUnavailable Kind = "source_unavailable"
	KindConfiguration     Kind = "configuration"
	KindThrottleDenied    Kind = "throttle_denied"
	KindUnknown           Kind = "unknown"
)

// Error represents a classified automation error
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewExtraction wraps a per-element extraction failure. Recoverable: the
// element is skipped and the collection round continues.
func NewExtraction(msg string, cause error) *Error {
	return &Error{Kind: KindExtraction, Message: msg, Cause: cause}
}

// NewAction wraps a per-item action failure. Recoverable: counted as failed,
// the session loop continues.
func NewAction(msg string, cause error) *Error {
	return &Error{Kind: KindAction, Message: msg, Cause: cause}
}

// NewSourceUnavailable wraps a page/navigation failure. Fatal for the run.
func NewSourceUnavailable(msg string, cause error) *Error {
	return &Error{Kind: KindSourceUnavailable, Message: msg, Cause: cause}
}

// NewConfiguration reports an invalid configuration. Fatal, detected before
// the run starts.
func NewConfiguration(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// ThrottleDeniedError signals that an action permit was refused. Not a
// failure: the caller is expected to sleep until RetryAfter and retry.
type ThrottleDeniedError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *ThrottleDeniedError) Error() string {
	return fmt.Sprintf("throttle denied (%s), retry after %s", e.Reason, e.RetryAfter)
}

// KindOf returns the Kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var td *ThrottleDeniedError
	if errors.As(err, &td) {
		return KindThrottleDenied
	}
	return KindUnknown
}

// IsFatal reports whether an error must end the current run
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindSourceUnavailable, KindConfiguration:
		return true
	default:
		return false
	}
}

// IsRecoverable reports whether an error is handled locally and surfaced
// only as aggregate counts
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindExtraction, KindAction:
		return true
	default:
		return false
	}
}

// AsThrottleDenied extracts a throttle denial from err, if present.
func AsThrottleDenied(err error) (*ThrottleDeniedError, bool) {
	var td *ThrottleDeniedError
	if errors.As(err, &td) {
		return td, true
	}
	return nil, false
}
