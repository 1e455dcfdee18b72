package collect

import (
	"context"
	"time"

	"feedbot/pkg/browser"
	"feedbot/pkg/logger"
	"feedbot/pkg/models"
)

const (
	defaultStallRounds = 5
	defaultMaxRounds   = 50
)

// Source yields the currently visible candidate elements of a feed and can
// advance the view to reveal more.
type Source interface {
	// Fetch returns the elements currently visible. A Fetch failure is
	// terminal for the collection run.
	Fetch(ctx context.Context) ([]browser.Element, error)

	// Advance asks the host to reveal more content (typically a scroll).
	Advance(ctx context.Context) error
}

// Refresher is implemented by sources that can reload their feed
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Extractor turns one raw element into a candidate item. Extraction errors
// are soft failures: the element is skipped and collection continues.
type Extractor func(ctx context.Context, el browser.Element) (models.CandidateItem, error)

// Options controls one collection run
type Options struct {
	// Limit bounds the number of collected items; 0 means unbounded.
	Limit int

	// StallRounds aborts after this many consecutive rounds that yield
	// no new item. Defaults to 5.
	StallRounds int

	// MaxRounds bounds the loop regardless of stall state, guarding
	// against feeds that perpetually emit duplicates. Defaults to 50.
	MaxRounds int

	// PollInterval is the wait between a scroll and the next fetch.
	PollInterval time.Duration

	// OnProgress is invoked after every newly collected item.
	OnProgress func(collected, limit int)

	// Seen carries identifiers across batches of the same run. The
	// engine allocates a fresh set when nil.
	Seen *models.SeenSet
}

// Engine runs the stall-aware scroll-and-dedup loop shared by every
// scraper
type Engine struct {
	source  Source
	extract Extractor
	logger  logger.Logger
}

// New creates a collection engine for source
func New(source Source, extract Extractor, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{source: source, extract: extract, logger: log}
}

// Collect runs the collection loop and returns the items found in
// discovery order. On a terminal source failure the partial result is
// returned together with the error, and the result's Error field carries
// the reason. Cancellation surfaces as ctx.Err() with a clean partial
// result.
func (e *Engine) Collect(ctx context.Context, opts Options) (models.CollectionResult, error) {
	stallRounds := opts.StallRounds
	if stallRounds <= 0 {
		stallRounds = defaultStallRounds
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	seen := opts.Seen
	if seen == nil {
		seen = models.NewSeenSet()
	}

	result := models.CollectionResult{StartedAt: time.Now()}
	defer func() {
		result.CompletedAt = time.Now()
	}()

	stalls := 0
	for round := 1; round <= maxRounds; round++ {
		// Cancellation stops the loop before the next fetch, never
		// mid-round.
		if err := ctx.Err(); err != nil {
			e.logger.DebugWithFields("collection cancelled", map[string]interface{}{
				"round":     round,
				"collected": len(result.Items),
			})
			return result, err
		}

		elements, err := e.source.Fetch(ctx)
		if err != nil {
			e.logger.WithError(err).Error("source failed to produce a view")
			result.Error = err.Error()
			return result, err
		}

		newItems := 0
		limitReached := false
		for _, el := range elements {
			item, err := e.extract(ctx, el)
			if err != nil {
				e.logger.WithError(err).WithField("element", el.Handle()).
					Debug("extraction failed, skipping element")
				continue
			}
			if item.ID == "" {
				continue
			}
			result.TotalFound++
			if !seen.Add(item.ID) {
				continue
			}

			result.Items = append(result.Items, item)
			newItems++
			if opts.OnProgress != nil {
				opts.OnProgress(len(result.Items), opts.Limit)
			}
			if opts.Limit > 0 && len(result.Items) >= opts.Limit {
				limitReached = true
				break
			}
		}

		logger.LogCollection("feed", round, newItems, len(result.Items))

		if limitReached {
			return result, nil
		}

		if newItems == 0 {
			stalls++
			if stalls >= stallRounds {
				e.logger.DebugWithFields("feed exhausted", map[string]interface{}{
					"rounds":    round,
					"collected": len(result.Items),
				})
				return result, nil
			}
		} else {
			stalls = 0
		}

		if round == maxRounds {
			break
		}

		if err := e.source.Advance(ctx); err != nil {
			e.logger.WithError(err).Warn("failed to advance feed view")
		}
		if err := wait(ctx, opts.PollInterval); err != nil {
			return result, err
		}
	}

	return result, nil
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
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
