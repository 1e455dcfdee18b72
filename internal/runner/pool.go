package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedbot/pkg/logger"
	"feedbot/pkg/models"
)

// Target identifies one feed a session should work through
type Target struct {
	// Kind selects the feed: "home", "search", "profile" or "followers".
	Kind string
	// Query is the search query or username, depending on Kind.
	Query string
}

func (t Target) String() string {
	if t.Query == "" {
		return t.Kind
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.Query)
}

// Job represents a single session run against a target
type Job struct {
	Target Target
}

// JobResult represents the outcome of one session run
type JobResult struct {
	Job      Job
	Result   *models.RunResult
	Error    error
	Duration time.Duration
}

// SessionRunner opens the target's feed and runs a full session over it.
// Each invocation owns its page; implementations must be safe for
// concurrent calls with distinct targets.
type SessionRunner interface {
	RunSession(ctx context.Context, target Target) (*models.RunResult, error)
}

// Pool manages concurrent session workers, one target per job
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	runner      SessionRunner
	logger      logger.Logger
}

// NewPool creates a session worker pool. Cancelling parent stops workers
// between jobs.
func NewPool(parent context.Context, numWorkers int, runner SessionRunner, log logger.Logger) *Pool {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan JobResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		runner:      runner,
		logger:      log,
	}
}

// Start launches all workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting session pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight sessions to finish and
// closes the result queue.
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Info("session pool stopped")
}

// Submit queues a session run against target
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("job submitted", map[string]interface{}{
			"target": job.Target.String(),
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("session pool is shutting down")
	}
}

// Results returns the channel session outcomes arrive on
func (p *Pool) Results() <-chan JobResult {
	return p.resultQueue
}

// QueueSize returns the number of queued jobs
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.runJob(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) runJob(job Job, workerID int) JobResult {
	start := time.Now()

	p.logger.DebugWithFields("worker running session", map[string]interface{}{
		"worker_id": workerID,
		"target":    job.Target.String(),
	})

	runResult, err := p.runner.RunSession(p.ctx, job.Target)
	result := JobResult{
		Job:      job,
		Result:   runResult,
		Error:    err,
		Duration: time.Since(start),
	}

	if err != nil {
		p.logger.ErrorWithFields("session failed", map[string]interface{}{
			"worker_id": workerID,
			"target":    job.Target.String(),
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	p.logger.InfoWithFields("session finished", map[string]interface{}{
		"worker_id": workerID,
		"target":    job.Target.String(),
		"succeeded": runResult.SuccessCount,
		"failed":    runResult.FailedCount,
		"skipped":   runResult.SkippedCount,
		"duration":  result.Duration,
	})
	return result
}

// RunAll runs a session for every target and merges the outcomes into a
// single aggregate result. Targets are processed with the pool's
// concurrency; the aggregate keeps per-target errors in its Errors list.
func RunAll(ctx context.Context, runner SessionRunner, targets []Target, workers int, log logger.Logger) *models.RunResult {
	pool := NewPool(ctx, workers, runner, log)
	pool.Start()

	go func() {
		for _, target := range targets {
			if err := pool.Submit(Job{Target: target}); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	aggregate := &models.RunResult{}
	for result := range pool.Results() {
		if result.Error != nil {
			aggregate.AddError(fmt.Sprintf("%s: %v", result.Job.Target, result.Error))
			continue
		}
		aggregate.Merge(result.Result)
	}
	return aggregate
}
