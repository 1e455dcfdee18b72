package models

import (
	"errors"
	"testing"
)

func TestRunResultRecording(t *testing.T) {
	var r RunResult

	r.RecordSuccess("1")
	r.RecordSuccess("2")
	r.RecordFailure(errors.New("click failed"))
	r.RecordFailure(nil)
	r.RecordSkip()
	r.AddError("feed stalled")

	if r.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", r.SuccessCount)
	}
	if r.FailedCount != 2 {
		t.Errorf("FailedCount = %d, want 2", r.FailedCount)
	}
	if r.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", r.SkippedCount)
	}
	if len(r.ActedIDs) != 2 || r.ActedIDs[0] != "1" || r.ActedIDs[1] != "2" {
		t.Errorf("ActedIDs = %v", r.ActedIDs)
	}
	// A nil failure counts but records no message.
	if len(r.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", r.Errors)
	}
}

func TestRunResultMerge(t *testing.T) {
	a := RunResult{SuccessCount: 2, ActedIDs: []string{"1", "2"}, DurationSeconds: 10}
	b := RunResult{
		SuccessCount:    1,
		FailedCount:     1,
		SkippedCount:    3,
		ActedIDs:        []string{"3"},
		Errors:          []string{"click failed"},
		DurationSeconds: 5,
		Cancelled:       true,
	}

	a.Merge(&b)

	if a.SuccessCount != 3 || a.FailedCount != 1 || a.SkippedCount != 3 {
		t.Errorf("counters = %d/%d/%d", a.SuccessCount, a.FailedCount, a.SkippedCount)
	}
	if len(a.ActedIDs) != 3 || a.ActedIDs[2] != "3" {
		t.Errorf("ActedIDs = %v", a.ActedIDs)
	}
	if a.DurationSeconds != 15 {
		t.Errorf("DurationSeconds = %v, want 15", a.DurationSeconds)
	}
	if !a.Cancelled {
		t.Error("a cancelled partial should mark the merged result cancelled")
	}

	a.Merge(nil) // no-op
	if a.SuccessCount != 3 {
		t.Error("merging nil should not change anything")
	}
}

func TestSeenSet(t *testing.T) {
	seen := NewSeenSet()

	if !seen.Add("1") {
		t.Error("first add should report new")
	}
	if seen.Add("1") {
		t.Error("second add should report duplicate")
	}
	if !seen.Has("1") {
		t.Error("Has should find recorded id")
	}
	if seen.Has("2") {
		t.Error("Has should not find unrecorded id")
	}

	seen.Add("2")
	if seen.Len() != 2 {
		t.Errorf("Len = %d, want 2", seen.Len())
	}
	if len(seen.IDs()) != 2 {
		t.Errorf("IDs = %v", seen.IDs())
	}
}

func TestCandidateItemAccessors(t *testing.T) {
	item := CandidateItem{
		ID:      "1234",
		Metrics: map[string]int{MetricLikes: 42},
		Flags:   map[string]bool{FlagRepost: true},
	}

	if v, ok := item.Metric(MetricLikes); !ok || v != 42 {
		t.Errorf("Metric(likes) = %d, %v", v, ok)
	}
	if _, ok := item.Metric(MetricFollowers); ok {
		t.Error("unrecorded metric should report absent")
	}
	if !item.Flag(FlagRepost) {
		t.Error("set flag should be true")
	}
	if item.Flag(FlagVerified) {
		t.Error("unset flag should be false")
	}

	var empty CandidateItem
	if _, ok := empty.Metric(MetricLikes); ok {
		t.Error("nil metrics map should report absent")
	}
	if empty.Flag(FlagRepost) {
		t.Error("nil flags map should be false")
	}
}
