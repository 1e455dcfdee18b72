package throttle

import (
	"context"
	"sync"
	"time"

	errs "feedbot/pkg/errors"
)

// hourWindow is the length of the rolling hourly window
const hourWindow = time.Hour

// Clock returns the current time; injectable for tests
type Clock func() time.Time

// Throttle gates automated actions behind two independent counters: a
// session-scoped count that never resets during a run, and an hour-scoped
// count that resets when the window expires. A cap of 0 never permits.
type Throttle struct {
	mu sync.Mutex

	now Clock

	sessionCap   int
	sessionCount int

	hourlyCap   int
	hourlyCount int
	windowStart time.Time

	successes int
	errors    int
}

// New creates a throttle with the given caps
func New(sessionCap, hourlyCap int) *Throttle {
	return NewWithClock(sessionCap, hourlyCap, time.Now)
}

// NewWithClock creates a throttle with an injectable clock
func NewWithClock(sessionCap, hourlyCap int, now Clock) *Throttle {
	return &Throttle{
		now:         now,
		sessionCap:  sessionCap,
		hourlyCap:   hourlyCap,
		windowStart: now(),
	}
}

// TryAcquire consumes one permit, or returns a *errs.ThrottleDeniedError.
// The hourly check takes precedence: an hourly denial carries the time
// until the window resets, while a session denial carries no retry hint
// because the session count never resets within a run.
func (t *Throttle) TryAcquire() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollWindow(now)

	if t.hourlyCount >= t.hourlyCap {
		denial := &errs.ThrottleDeniedError{Reason: "hourly cap reached"}
		// A zero cap never frees a permit, so there is no retry hint: the
		// window roll cannot help.
		if t.hourlyCap > 0 {
			denial.RetryAfter = t.windowStart.Add(hourWindow).Sub(now)
		}
		return denial
	}
	if t.sessionCount >= t.sessionCap {
		return &errs.ThrottleDeniedError{Reason: "session cap reached"}
	}

	t.hourlyCount++
	t.sessionCount++
	return nil
}

// Wait blocks until a permit is available or ctx is done. A denial with no
// retry hint is returned immediately: the session count cannot recover
// within a run, and a zero hourly cap never opens up.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		err := t.TryAcquire()
		if err == nil {
			return nil
		}

		denial, ok := errs.AsThrottleDenied(err)
		if !ok || denial.RetryAfter <= 0 {
			return err
		}

		timer := time.NewTimer(denial.RetryAfter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// RecordSuccess tallies a completed action. Feedback counts only; window
// counts are committed at acquire time.
func (t *Throttle) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes++
}

// RecordError tallies a failed action, for the caller's backoff policy
func (t *Throttle) RecordError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors++
}

// Stats returns the success/error feedback tallies
func (t *Throttle) Stats() (successes, errors int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.successes, t.errors
}

// SessionRemaining returns how many permits are left in the session window
func (t *Throttle) SessionRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if remaining := t.sessionCap - t.sessionCount; remaining > 0 {
		return remaining
	}
	return 0
}

// HourlyRemaining returns how many permits are left in the current hour
func (t *Throttle) HourlyRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindow(t.now())
	if remaining := t.hourlyCap - t.hourlyCount; remaining > 0 {
		return remaining
	}
	return 0
}

// rollWindow resets the hourly count once the window has expired.
// Caller holds t.mu.
func (t *Throttle) rollWindow(now time.Time) {
	if now.Sub(t.windowStart) >= hourWindow {
		t.hourlyCount = 0
		t.windowStart = now
	}
}
