package ui

import (
	"strings"
	"testing"
)

func TestStatusTrackerBatchProgress(t *testing.T) {
	st := NewStatusTracker(20)
	for i := 0; i < 5; i++ {
		st.IncrementActions()
	}

	bar := st.GetBatchProgress()
	if !strings.Contains(bar, "5/20") {
		t.Errorf("expected counter 5/20 in %q", bar)
	}
	if strings.Count(bar, ProgressBar) != 5 {
		t.Errorf("expected 5 filled cells in %q", bar)
	}
}

func TestStatusTrackerCap(t *testing.T) {
	st := NewStatusTracker(2)
	st.IncrementActions()
	if st.IsCapReached() {
		t.Error("cap should not be reached at 1/2")
	}
	st.IncrementActions()
	if !st.IsCapReached() {
		t.Error("cap should be reached at 2/2")
	}

	st.ResetBatch()
	if st.IsCapReached() {
		t.Error("cap should clear after batch reset")
	}
	if st.TotalActions != 2 {
		t.Errorf("total should survive batch reset, got %d", st.TotalActions)
	}
}

func TestProgressDisplayCountsThroughTracker(t *testing.T) {
	SetQuietMode(true)
	defer SetQuietMode(false)

	d := NewProgressDisplay("gopher", "search:golang", 10, 3, false)
	d.StartItem("1")
	d.CompleteAction("1")
	d.CompleteAction("2")
	d.SkipItem("3", "no keyword match")
	d.FailAction("4", nil)

	if d.tracker.TotalActions != 2 {
		t.Errorf("tracker total = %d, want 2", d.tracker.TotalActions)
	}
	if d.tracker.HourlyBatch != 2 {
		t.Errorf("tracker batch = %d, want 2", d.tracker.HourlyBatch)
	}
	if d.skipped != 1 || d.errors != 1 {
		t.Errorf("skipped/errors = %d/%d, want 1/1", d.skipped, d.errors)
	}

	d.CompleteAction("5")
	d.RateLimitWarning(0)
	if d.tracker.HourlyBatch != 0 {
		t.Error("rate limit warning should reset the hourly batch")
	}
	if d.tracker.TotalActions != 3 {
		t.Errorf("total should survive the reset, got %d", d.tracker.TotalActions)
	}
}

func TestStatusTrackerOverflowClamps(t *testing.T) {
	st := NewStatusTracker(2)
	for i := 0; i < 5; i++ {
		st.IncrementActions()
	}

	bar := st.GetBatchProgress()
	if strings.Count(bar, ProgressBar) != 20 {
		t.Errorf("overflowing batch should fill the bar, got %q", bar)
	}
}
