package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of actions taken during a session, measured
// against the hourly cap.
type StatusTracker struct {
	TotalActions int
	HourlyBatch  int
	HourlyCap    int
	StartTime    time.Time
}

// NewStatusTracker creates a tracker against the given hourly cap
func NewStatusTracker(hourlyCap int) *StatusTracker {
	if hourlyCap <= 0 {
		hourlyCap = 1
	}
	return &StatusTracker{
		HourlyCap: hourlyCap,
		StartTime: time.Now(),
	}
}

// IncrementActions counts one action against both totals
func (st *StatusTracker) IncrementActions() {
	st.TotalActions++
	st.HourlyBatch++
}

// ResetBatch resets the hourly counter when a new window opens
func (st *StatusTracker) ResetBatch() {
	st.HourlyBatch = 0
}

// GetBatchProgress returns a formatted progress bar for the hourly window
func (st *StatusTracker) GetBatchProgress() string {
	const width = 20
	progress := float64(st.HourlyBatch) / float64(st.HourlyCap)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.HourlyBatch, st.HourlyCap)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetActionRate returns the average action rate in actions per minute
func (st *StatusTracker) GetActionRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalActions) / elapsed
}

// PrintProgress prints the current progress status
func (st *StatusTracker) PrintProgress() {
	fmt.Printf("\r%s Total: %d | Hour: %s",
		Green("[ENGAGED]"),
		st.TotalActions,
		st.GetBatchProgress())
}

// IsCapReached checks if the hourly window is exhausted
func (st *StatusTracker) IsCapReached() bool {
	return st.HourlyBatch >= st.HourlyCap
}
