package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"feedbot/pkg/collect"
	"feedbot/pkg/config"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
	"feedbot/pkg/match"
	"feedbot/pkg/models"
	"feedbot/pkg/throttle"
)

// pauseTick is how often a paused run re-checks its state
const pauseTick = 250 * time.Millisecond

// Action performs one external operation (like, follow, comment) against a
// candidate item.
type Action interface {
	Name() string
	Perform(ctx context.Context, item models.CandidateItem) error
}

// Progress receives per-item outcomes while a run executes. All calls are
// made from the run's goroutine. Implementations render or record them.
type Progress interface {
	StartItem(id string)
	CompleteAction(id string)
	SkipItem(id, reason string)
	FailAction(id string, err error)
	RateLimitWarning(wait time.Duration)
	Complete()
}

// Params configures a session controller
type Params struct {
	Config   *config.Config
	Engine   *collect.Engine
	Throttle *throttle.Throttle
	Action   Action

	// SideAction, when set, is rolled on each successful primary action
	// with Session.SideActionProbability. It shares the parent action's
	// throttle permit and does not touch the run counters.
	SideAction Action

	// Refresh reloads the feed after an action-free round. Optional.
	Refresh func(ctx context.Context) error

	// Seen pre-seeds the dedup set, so items acted on in earlier runs
	// are not acted on again. Optional.
	Seen *models.SeenSet

	// Progress receives per-item outcome notifications. Optional.
	Progress Progress

	Logger logger.Logger

	// Rand and Clock are injectable for tests.
	Rand  func() float64
	Clock func() time.Time
}

// Controller wraps a timed, capped execution loop around the collection
// engine, the throttle and the target matcher. One controller owns exactly
// one run.
type Controller struct {
	id       string
	cfg      *config.Config
	engine   *collect.Engine
	throttle *throttle.Throttle
	action   Action
	side     Action
	refresh  func(ctx context.Context) error
	seen     *models.SeenSet
	progress Progress
	logger   logger.Logger
	randF    func() float64
	clock    func() time.Time

	machine stateMachine
}

// New creates a controller for one run. The configuration is validated
// here so misconfigured runs fail fast.
func New(p Params) (*Controller, error) {
	if p.Config == nil {
		return nil, errs.NewConfiguration("session requires a configuration")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, errs.NewConfiguration(err.Error())
	}
	if p.Engine == nil {
		return nil, errs.NewConfiguration("session requires a collection engine")
	}
	if p.Throttle == nil {
		return nil, errs.NewConfiguration("session requires a throttle")
	}
	if p.Action == nil {
		return nil, errs.NewConfiguration("session requires an action")
	}

	log := p.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	randF := p.Rand
	if randF == nil {
		randF = rand.Float64
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Controller{
		id:       uuid.NewString(),
		cfg:      p.Config,
		engine:   p.Engine,
		throttle: p.Throttle,
		action:   p.Action,
		side:     p.SideAction,
		refresh:  p.Refresh,
		seen:     p.Seen,
		progress: p.Progress,
		logger:   log.WithField("action", p.Action.Name()),
		randF:    randF,
		clock:    clock,
	}, nil
}

// ID returns the run identifier
func (c *Controller) ID() string {
	return c.id
}

// State returns the current session state
func (c *Controller) State() State {
	return c.machine.Current()
}

// Pause requests the run to pause at the next loop boundary
func (c *Controller) Pause() {
	if c.machine.Transition(StatePaused) {
		logger.LogSessionState(c.id, StateRunning.String(), StatePaused.String())
	}
}

// Resume requests a paused run to continue
func (c *Controller) Resume() {
	if c.machine.Transition(StateRunning) {
		logger.LogSessionState(c.id, StatePaused.String(), StateRunning.String())
	}
}

// Cancel requests the run to stop at the next loop boundary
func (c *Controller) Cancel() {
	from := c.machine.Current()
	if c.machine.Transition(StateCancelled) {
		logger.LogSessionState(c.id, from.String(), StateCancelled.String())
	}
}

// Run executes the session loop until the duration expires, the session
// cap is reached, the feed is exhausted, a fatal error occurs or the run
// is cancelled. The returned result is immutable once Run returns.
func (c *Controller) Run(ctx context.Context) (*models.RunResult, error) {
	if !c.machine.Transition(StateRunning) {
		return nil, fmt.Errorf("session %s cannot start from state %s", c.id, c.State())
	}
	logger.LogSessionState(c.id, StateIdle.String(), StateRunning.String())

	start := c.clock()
	var deadline time.Time
	if c.cfg.Session.Duration > 0 {
		deadline = start.Add(c.cfg.Session.Duration)
	}

	seen := c.seen
	if seen == nil {
		seen = models.NewSeenSet()
	}
	result := &models.RunResult{}

	c.logger.InfoWithFields("session started", map[string]interface{}{
		"session_id":      c.id,
		"max_per_session": c.cfg.RateLimit.MaxPerSession,
		"max_per_hour":    c.cfg.RateLimit.MaxPerHour,
		"duration":        c.cfg.Session.Duration,
	})

loop:
	for {
		switch c.machine.Current() {
		case StatePaused:
			if err := sleep(ctx, pauseTick); err != nil {
				c.Cancel()
			}
			continue
		case StateCancelled:
			result.Cancelled = true
			break loop
		case StateRunning:
			// proceed
		default:
			break loop
		}

		if ctx.Err() != nil {
			c.Cancel()
			result.Cancelled = true
			break loop
		}
		if !deadline.IsZero() && !c.clock().Before(deadline) {
			c.logger.Info("session duration expired")
			break loop
		}
		if result.SuccessCount >= c.cfg.RateLimit.MaxPerSession {
			c.logger.InfoWithFields("session cap reached", map[string]interface{}{
				"acted": result.SuccessCount,
			})
			break loop
		}

		batch, err := c.engine.Collect(ctx, collect.Options{
			Limit:        c.cfg.Session.BatchLimit,
			StallRounds:  c.cfg.Session.StallRounds,
			MaxRounds:    c.cfg.Session.MaxRounds,
			PollInterval: c.cfg.Session.PollInterval,
			Seen:         seen,
		})
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				c.Cancel()
				result.Cancelled = true
				break loop
			}
			// The source cannot produce a view: fatal for this run.
			result.AddError(err.Error())
			break loop
		}
		if len(batch.Items) == 0 {
			c.logger.Info("no new candidates, ending session")
			break loop
		}

		actionsThisRound, done := c.processBatch(ctx, batch.Items, result, deadline)
		if done {
			break loop
		}
		if actionsThisRound == 0 && c.refresh != nil {
			if err := c.refresh(ctx); err != nil {
				c.logger.WithError(err).Warn("feed refresh failed")
			}
		}
	}

	end := c.clock()
	result.DurationSeconds = end.Sub(start).Seconds()

	if c.progress != nil {
		c.progress.Complete()
	}

	if !result.Cancelled {
		prev := c.machine.Current()
		if c.machine.Transition(StateCompleted) {
			logger.LogSessionState(c.id, prev.String(), StateCompleted.String())
		}
	}

	c.logger.InfoWithFields("session finished", map[string]interface{}{
		"session_id": c.id,
		"success":    result.SuccessCount,
		"failed":     result.FailedCount,
		"skipped":    result.SkippedCount,
		"cancelled":  result.Cancelled,
		"duration_s": result.DurationSeconds,
	})

	return result, nil
}

// processBatch evaluates and acts on one collected batch in discovery
// order. It reports the number of actions performed and whether the run
// must stop.
func (c *Controller) processBatch(ctx context.Context, items []models.CandidateItem, result *models.RunResult, deadline time.Time) (int, bool) {
	actions := 0
	for _, item := range items {
		// Item boundaries are the cancellation and pause check points: no
		// action is attempted after a cancel request is observed, and a
		// paused run holds its place in the batch.
		for c.machine.Current() == StatePaused {
			if err := sleep(ctx, pauseTick); err != nil {
				c.Cancel()
				result.Cancelled = true
				return actions, true
			}
		}
		if c.machine.Current() != StateRunning {
			result.Cancelled = true
			return actions, true
		}
		if ctx.Err() != nil {
			c.Cancel()
			result.Cancelled = true
			return actions, true
		}
		if !deadline.IsZero() && !c.clock().Before(deadline) {
			return actions, true
		}
		if result.SuccessCount >= c.cfg.RateLimit.MaxPerSession {
			return actions, true
		}

		ok, reason := match.Matches(item, c.cfg.Filter)
		if !ok {
			c.logger.DebugWithFields("candidate filtered", map[string]interface{}{
				"item_id": item.ID,
				"reason":  reason,
			})
			result.RecordSkip()
			if c.progress != nil {
				c.progress.SkipItem(item.ID, reason)
			}
			continue
		}

		if !c.sampleAction() {
			result.RecordSkip()
			if c.progress != nil {
				c.progress.SkipItem(item.ID, "probability roll")
			}
			continue
		}

		if err := c.waitPermit(ctx, deadline); err != nil {
			if denial, isDenial := errs.AsThrottleDenied(err); isDenial {
				// Only a denial with no retry hint reaches here; hourly
				// denials are waited out inside waitPermit.
				c.logger.WarnWithFields("throttle denied", map[string]interface{}{
					"reason": denial.Reason,
				})
				return actions, true
			}
			if ctx.Err() == nil && stderrors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("session duration expired while waiting for a permit")
				return actions, true
			}
			c.Cancel()
			result.Cancelled = true
			return actions, true
		}
		// The hourly wait can be long; the deadline may have passed while
		// the permit was pending.
		if !deadline.IsZero() && !c.clock().Before(deadline) {
			return actions, true
		}

		if c.progress != nil {
			c.progress.StartItem(item.ID)
		}
		if done := c.performAction(ctx, item, result); done {
			return actions, true
		}
		actions++

		if err := sleep(ctx, c.actionDelay()); err != nil {
			c.Cancel()
			result.Cancelled = true
			return actions, true
		}
	}
	return actions, false
}

// waitPermit acquires a throttle permit. An hourly wait is bounded by the
// session deadline so the sleep cannot outlive the run.
func (c *Controller) waitPermit(ctx context.Context, deadline time.Time) error {
	err := c.throttle.TryAcquire()
	if err == nil {
		return nil
	}
	denial, ok := errs.AsThrottleDenied(err)
	if !ok || denial.RetryAfter <= 0 {
		return err
	}

	if c.progress != nil {
		c.progress.RateLimitWarning(denial.RetryAfter)
	}
	c.logger.InfoWithFields("hourly cap reached, waiting", map[string]interface{}{
		"retry_after": denial.RetryAfter.String(),
	})

	waitCtx := ctx
	if !deadline.IsZero() {
		remaining := deadline.Sub(c.clock())
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}
	return c.throttle.Wait(waitCtx)
}

// performAction runs the delegated action and the optional side action,
// updating result and throttle feedback. It reports whether the failure is
// fatal for the run.
func (c *Controller) performAction(ctx context.Context, item models.CandidateItem, result *models.RunResult) bool {
	err := c.action.Perform(ctx, item)
	logger.LogAction(c.action.Name(), item.ID, err == nil, err)
	if err != nil {
		c.throttle.RecordError()
		result.RecordFailure(err)
		if c.progress != nil {
			c.progress.FailAction(item.ID, err)
		}
		if errs.IsFatal(err) {
			result.AddError(fmt.Sprintf("source unavailable, ending run: %v", err))
			return true
		}
		return false
	}

	c.throttle.RecordSuccess()
	result.RecordSuccess(item.ID)
	if c.progress != nil {
		c.progress.CompleteAction(item.ID)
	}

	// Side actions share the parent action's permit and are log-only.
	if c.side != nil && c.cfg.Session.SideActionProbability > 0 &&
		c.randF() <= c.cfg.Session.SideActionProbability {
		if err := c.side.Perform(ctx, item); err != nil {
			c.logger.WithError(err).WithField("item_id", item.ID).
				Warn("side action failed")
		} else {
			logger.LogAction(c.side.Name(), item.ID, true, nil)
		}
	}

	return false
}

// sampleAction rolls the configured action probability
func (c *Controller) sampleAction() bool {
	p := c.cfg.Session.ActionProbability
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.randF() <= p
}

// actionDelay picks the pacing delay before the next action. Repeated
// errors widen the delay range; this backoff policy deliberately lives in
// the controller, not in the throttle.
func (c *Controller) actionDelay() time.Duration {
	min := c.cfg.RateLimit.MinActionDelay
	max := c.cfg.RateLimit.MaxActionDelay
	if max <= min {
		return min
	}

	delay := min + time.Duration(c.randF()*float64(max-min))

	successes, errors := c.throttle.Stats()
	if errors > successes && errors > 2 {
		delay *= 2
	}
	return delay
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
