package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay renders a single-line view of a running session. It
// implements the session loop's progress hooks.
type ProgressDisplay struct {
	mu          sync.Mutex
	account     string
	target      string
	sessionCap  int
	tracker     *StatusTracker
	skipped     int
	errors      int
	currentItem string
	isDebug     bool
}

// NewProgressDisplay creates a display for a session against target
func NewProgressDisplay(account, target string, sessionCap, hourlyCap int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		account:    account,
		target:     target,
		sessionCap: sessionCap,
		tracker:    NewStatusTracker(hourlyCap),
		isDebug:    debug,
	}
}

// StartItem marks the item currently being acted on
func (p *ProgressDisplay) StartItem(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentItem = id
	if !p.isDebug {
		p.printProgress()
	}
}

// CompleteAction counts a successful action
func (p *ProgressDisplay) CompleteAction(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.IncrementActions()
	if p.isDebug {
		fmt.Printf("\n%s %s\n", Green("✓"), id)
	} else {
		p.printProgress()
	}
}

// SkipItem counts an item that did not qualify
func (p *ProgressDisplay) SkipItem(id, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skipped++
	if p.isDebug {
		fmt.Printf("\n%s %s • %s\n", Dim("·"), id, Dim(reason))
	} else {
		p.printProgress()
	}
}

// FailAction counts a failed action
func (p *ProgressDisplay) FailAction(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	if p.isDebug {
		fmt.Printf("\n%s %s - %v\n", Red("✗"), id, err)
	} else {
		p.printProgress()
	}
}

// RateLimitWarning shows the exhausted hourly window and the pause length,
// then starts a fresh batch count for the next window.
func (p *ProgressDisplay) RateLimitWarning(waitTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !quietMode {
		fmt.Printf("\n%s Hourly cap %s reached. Waiting %s...\n",
			Yellow("⚠"),
			p.tracker.GetBatchProgress(),
			p.formatDuration(waitTime),
		)
	}
	p.tracker.ResetBatch()
}

// printProgress prints the minimal progress line. Caller holds p.mu.
func (p *ProgressDisplay) printProgress() {
	if quietMode {
		return
	}

	actions := p.tracker.TotalActions

	barWidth := 20
	progress := float64(actions) / float64(p.sessionCap)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("\r%s %s [%s] %d/%d • %.1f/min",
		Cyan(p.account),
		Dim(p.target),
		bar,
		actions,
		p.sessionCap,
		p.tracker.GetActionRate(),
	)

	if p.currentItem != "" {
		line += fmt.Sprintf(" • %s", p.currentItem)
	}
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	width := TerminalWidth()
	if len(line) > width {
		line = line[:width]
	}
	fmt.Printf("\r%s\r%s", strings.Repeat(" ", width), line)
}

// Complete prints the end-of-session summary
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if quietMode {
		return
	}

	elapsed := p.tracker.GetElapsedTime()

	fmt.Printf("\n\n%s %d actions on %s as @%s\n",
		Green("✓"),
		p.tracker.TotalActions,
		p.target,
		p.account,
	)
	fmt.Printf("  %s %d skipped in %s (%.1f actions/min)\n",
		Dim("•"),
		p.skipped,
		p.formatDuration(elapsed),
		p.tracker.GetActionRate(),
	)

	if p.errors > 0 {
		fmt.Printf("  %s %d actions failed\n", Dim("•"), p.errors)
	}
}

// formatDuration formats a duration in a human-readable way
func (p *ProgressDisplay) formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
