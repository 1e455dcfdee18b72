package throttle

import (
	"context"
	"testing"
	"time"

	errs "feedbot/pkg/errors"
)

// fakeClock is an adjustable clock for window tests
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestSessionCap(t *testing.T) {
	th := New(3, 100)

	for i := 0; i < 3; i++ {
		if err := th.TryAcquire(); err != nil {
			t.Fatalf("expected permit %d to be granted, got %v", i+1, err)
		}
	}

	err := th.TryAcquire()
	if err == nil {
		t.Fatal("expected session denial after cap")
	}
	denial, ok := errs.AsThrottleDenied(err)
	if !ok {
		t.Fatalf("expected ThrottleDeniedError, got %T", err)
	}
	if denial.Reason != "session cap reached" {
		t.Errorf("unexpected denial reason: %s", denial.Reason)
	}
	if denial.RetryAfter != 0 {
		t.Errorf("session denial should carry no retry hint, got %s", denial.RetryAfter)
	}
}

func TestHourlyCapRollsOver(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	th := NewWithClock(100, 2, clock.Now)

	if err := th.TryAcquire(); err != nil {
		t.Fatal(err)
	}
	if err := th.TryAcquire(); err != nil {
		t.Fatal(err)
	}

	err := th.TryAcquire()
	denial, ok := errs.AsThrottleDenied(err)
	if !ok {
		t.Fatalf("expected hourly denial, got %v", err)
	}
	if denial.Reason != "hourly cap reached" {
		t.Errorf("unexpected reason: %s", denial.Reason)
	}
	if denial.RetryAfter != time.Hour {
		t.Errorf("expected retry after 1h, got %s", denial.RetryAfter)
	}

	// Part-way through the window the retry hint shrinks.
	clock.Advance(40 * time.Minute)
	err = th.TryAcquire()
	denial, _ = errs.AsThrottleDenied(err)
	if denial == nil || denial.RetryAfter != 20*time.Minute {
		t.Fatalf("expected 20m retry hint, got %v", err)
	}

	// After the window expires the count resets.
	clock.Advance(20 * time.Minute)
	if err := th.TryAcquire(); err != nil {
		t.Fatalf("expected permit after window reset, got %v", err)
	}
}

func TestHourlyCapPrecedesSessionCap(t *testing.T) {
	th := New(0, 0)

	err := th.TryAcquire()
	denial, ok := errs.AsThrottleDenied(err)
	if !ok {
		t.Fatalf("expected denial, got %v", err)
	}
	if denial.Reason != "hourly cap reached" {
		t.Errorf("hourly check must take precedence, got %s", denial.Reason)
	}
}

func TestZeroCapNeverPermits(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	th := NewWithClock(0, 100, clock.Now)

	for i := 0; i < 5; i++ {
		if th.TryAcquire() == nil {
			t.Fatal("cap of 0 must never permit")
		}
		clock.Advance(2 * time.Hour)
	}
}

func TestRollingWindowNeverExceedsCap(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	th := NewWithClock(1000, 5, clock.Now)

	granted := make([]time.Time, 0)
	for i := 0; i < 200; i++ {
		if th.TryAcquire() == nil {
			granted = append(granted, clock.Now())
		}
		clock.Advance(7 * time.Minute)
	}

	// Count grants inside every rolling 60-minute span.
	for i, start := range granted {
		count := 0
		for _, ts := range granted[i:] {
			if ts.Sub(start) < time.Hour {
				count++
			}
		}
		if count > 5 {
			t.Fatalf("window starting %s holds %d grants, cap is 5", start, count)
		}
	}
}

func TestWaitReturnsSessionDenialImmediately(t *testing.T) {
	th := New(0, 100)

	start := time.Now()
	err := th.Wait(context.Background())
	if err == nil {
		t.Fatal("expected denial")
	}
	if time.Since(start) > time.Second {
		t.Error("session denial must not block")
	}
}

func TestWaitReturnsZeroHourlyCapImmediately(t *testing.T) {
	// With a zero hourly cap the window roll can never free a permit, so
	// Wait must surface the denial instead of sleeping out the window.
	th := New(100, 0)

	start := time.Now()
	err := th.Wait(context.Background())
	if err == nil {
		t.Fatal("expected denial")
	}
	denial, ok := errs.AsThrottleDenied(err)
	if !ok {
		t.Fatalf("expected ThrottleDeniedError, got %T", err)
	}
	if denial.RetryAfter != 0 {
		t.Errorf("zero-cap denial should carry no retry hint, got %s", denial.RetryAfter)
	}
	if time.Since(start) > time.Second {
		t.Error("zero-cap denial must not block")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	th := New(100, 1)
	if err := th.TryAcquire(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := th.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestFeedbackTallies(t *testing.T) {
	th := New(10, 10)
	th.RecordSuccess()
	th.RecordSuccess()
	th.RecordError()

	successes, errors := th.Stats()
	if successes != 2 || errors != 1 {
		t.Errorf("expected 2/1, got %d/%d", successes, errors)
	}
}

func TestRemaining(t *testing.T) {
	th := New(3, 2)
	_ = th.TryAcquire()

	if got := th.SessionRemaining(); got != 2 {
		t.Errorf("session remaining = %d, want 2", got)
	}
	if got := th.HourlyRemaining(); got != 1 {
		t.Errorf("hourly remaining = %d, want 1", got)
	}
}
