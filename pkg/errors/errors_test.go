package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"extraction", NewExtraction("no permalink", nil), KindExtraction},
		{"action", NewAction("button not found", nil), KindAction},
		{"source", NewSourceUnavailable("feed gone", nil), KindSourceUnavailable},
		{"configuration", NewConfiguration("bad caps"), KindConfiguration},
		{"throttle", &ThrottleDeniedError{Reason: "hourly cap"}, KindThrottleDenied},
		{"plain", stderrors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("session run: %w", NewAction("click failed", stderrors.New("timeout")))
	if got := KindOf(err); got != KindAction {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindAction)
	}
}

func TestClassification(t *testing.T) {
	if !IsFatal(NewSourceUnavailable("feed gone", nil)) {
		t.Error("source unavailable should be fatal")
	}
	if !IsFatal(NewConfiguration("bad caps")) {
		t.Error("configuration errors should be fatal")
	}
	if IsFatal(NewAction("click failed", nil)) {
		t.Error("action errors should not be fatal")
	}

	if !IsRecoverable(NewAction("click failed", nil)) {
		t.Error("action errors should be recoverable")
	}
	if !IsRecoverable(NewExtraction("no permalink", nil)) {
		t.Error("extraction errors should be recoverable")
	}
	if IsRecoverable(&ThrottleDeniedError{Reason: "session cap"}) {
		t.Error("throttle denials are neither fatal nor recoverable failures")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewAction("click failed", stderrors.New("timeout"))
	want := "action error: click failed: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewConfiguration("bad caps")
	if bare.Error() != "configuration error: bad caps" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("timeout")
	err := NewAction("click failed", cause)
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestAsThrottleDenied(t *testing.T) {
	denial := &ThrottleDeniedError{Reason: "hourly cap", RetryAfter: 90 * time.Second}
	wrapped := fmt.Errorf("wait: %w", denial)

	got, ok := AsThrottleDenied(wrapped)
	if !ok {
		t.Fatal("expected a throttle denial")
	}
	if got.RetryAfter != 90*time.Second {
		t.Errorf("RetryAfter = %v, want 90s", got.RetryAfter)
	}

	if _, ok := AsThrottleDenied(stderrors.New("boom")); ok {
		t.Error("plain error should not be a throttle denial")
	}
}
