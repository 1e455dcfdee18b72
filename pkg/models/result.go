package models

import "time"

// CollectionResult is the outcome of one collection run. It serializes
// directly to the exported JSON format.
type CollectionResult struct {
	Items       []CandidateItem `json:"items"`
	TotalFound  int             `json:"total_found"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// RunResult accumulates the outcome of one session run. It is mutated only
// by the controller that owns the run and treated as immutable once the run
// returns it.
type RunResult struct {
	SuccessCount    int      `json:"success_count"`
	FailedCount     int      `json:"failed_count"`
	SkippedCount    int      `json:"skipped_count"`
	ActedIDs        []string `json:"acted_ids"`
	Errors          []string `json:"errors,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
	Cancelled       bool     `json:"cancelled"`
}

// RecordSuccess counts a completed action against id
func (r *RunResult) RecordSuccess(id string) {
	r.SuccessCount++
	r.ActedIDs = append(r.ActedIDs, id)
}

// RecordFailure counts a failed action and keeps the error string
func (r *RunResult) RecordFailure(err error) {
	r.FailedCount++
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// RecordSkip counts an item that did not qualify for an action
func (r *RunResult) RecordSkip() {
	r.SkippedCount++
}

// AddError appends a run-level error string
func (r *RunResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Merge folds other into r field-wise. Counters add, lists concatenate,
// durations add, and a cancelled partial marks the whole as cancelled. Used
// when composing multi-target runs.
func (r *RunResult) Merge(other *RunResult) {
	if other == nil {
		return
	}
	r.SuccessCount += other.SuccessCount
	r.FailedCount += other.FailedCount
	r.SkippedCount += other.SkippedCount
	r.ActedIDs = append(r.ActedIDs, other.ActedIDs...)
	r.Errors = append(r.Errors, other.Errors...)
	r.DurationSeconds += other.DurationSeconds
	r.Cancelled = r.Cancelled || other.Cancelled
}
