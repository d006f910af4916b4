package scheduler

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/logging"
)

// RetryConfig configures retry behavior for failed jobs.
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration (cap)
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig returns the default retry behavior for refresh jobs.
// Backoff schedule: 2s, 4s, 8s (capped). Refreshes recur on the next tick
// anyway, so a job that keeps failing is not worth chasing for long.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     8 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Queue runs refresh jobs with bounded concurrency. Jobs are keyed by their
// deterministic ID: a job whose predecessor is still queued or active is not
// enqueued again. Terminal jobs stay visible until the same ID is re-enqueued.
type Queue struct {
	mu      sync.Mutex
	jobs    map[string]*jobState
	order   []string // enqueue order, for stable snapshots
	running int

	maxConcurrent int
	retryConfig   RetryConfig

	// Cancellation context for running jobs
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(config RetryConfig) QueueOption {
	return func(q *Queue) {
		q.retryConfig = config
	}
}

// NewQueue creates a job queue running at most maxConcurrent jobs at once.
func NewQueue(maxConcurrent int, logger *zap.Logger, opts ...QueueOption) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:          make(map[string]*jobState),
		maxConcurrent: maxConcurrent,
		retryConfig:   DefaultRetryConfig(),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger.Named("jobqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a job and attempts to start it. Returns false if a job with
// the same ID is already queued or active; a terminal predecessor is
// replaced.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx.Err() != nil {
		q.logger.Warn("queue shut down, ignoring enqueue", zap.String("job_id", job.ID()))
		return false
	}

	id := job.ID()
	if existing, ok := q.jobs[id]; ok {
		switch existing.getStatus() {
		case JobStatusQueued, JobStatusActive:
			q.logger.Debug("job already in flight, skipping enqueue", zap.String("job_id", id))
			return false
		default:
			// Terminal: drop the old entry and re-enqueue.
			q.removeLocked(id)
		}
	}

	state := newJobState(job)
	q.jobs[id] = state
	q.order = append(q.order, id)

	q.logger.Info("job enqueued",
		zap.String("job_id", id),
		zap.String("kind", string(job.Kind)))

	q.tryStartJobsLocked()
	return true
}

// tryStartJobsLocked starts queued jobs while worker slots remain.
// Must be called with lock held.
func (q *Queue) tryStartJobsLocked() {
	if q.ctx.Err() != nil {
		return
	}

	for _, id := range q.order {
		if q.running >= q.maxConcurrent {
			return
		}

		state := q.jobs[id]
		if state == nil || state.getStatus() != JobStatusQueued {
			continue
		}

		state.setStatus(JobStatusActive)
		q.running++

		q.logger.Info("starting job", zap.String("job_id", id))

		q.wg.Add(1)
		go q.runJob(state)
	}
}

// runJob executes a job with retry logic for transient errors.
func (q *Queue) runJob(state *jobState) {
	defer q.wg.Done()

	var lastErr error

	for attempt := 0; attempt <= q.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := q.calculateBackoff(attempt)
			q.logger.Info("retrying job after backoff",
				zap.String("job_id", state.job.ID()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))

			select {
			case <-q.ctx.Done():
				q.completeJob(state, q.ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		err := state.job.Run(q.ctx)
		if err == nil {
			q.completeJob(state, nil)
			return
		}

		lastErr = err

		if errors.Is(err, context.Canceled) {
			break
		}

		state.mu.Lock()
		state.retries++
		state.mu.Unlock()

		if attempt >= q.retryConfig.MaxRetries {
			q.logger.Error("job failed after max retries",
				zap.String("job_id", state.job.ID()),
				zap.String("error", logging.SanitizeError(err)))
			break
		}

		q.logger.Warn("job attempt failed",
			zap.String("job_id", state.job.ID()),
			zap.Int("attempt", attempt+1),
			zap.String("error", logging.SanitizeError(err)))
	}

	q.completeJob(state, lastErr)
}

// calculateBackoff computes the backoff for a retry attempt.
// Exponential with ±10% jitter.
func (q *Queue) calculateBackoff(attempt int) time.Duration {
	backoff := float64(q.retryConfig.InitialBackoff) *
		math.Pow(q.retryConfig.BackoffFactor, float64(attempt-1))

	if backoff > float64(q.retryConfig.MaxBackoff) {
		backoff = float64(q.retryConfig.MaxBackoff)
	}

	jitter := backoff * 0.1 * (rand.Float64()*2 - 1)

	return time.Duration(backoff + jitter)
}

// completeJob records the job's terminal state and frees its worker slot,
// unless the stuck sweep already did both.
func (q *Queue) completeJob(state *jobState, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state.mu.RLock()
	swept := state.swept
	state.mu.RUnlock()

	if !swept {
		if err != nil {
			state.setError(err)
			state.setStatus(JobStatusFailed)
			// Connector errors can embed connection strings; never log
			// them raw.
			q.logger.Error("job failed",
				zap.String("job_id", state.job.ID()),
				zap.String("error", logging.SanitizeError(err)))
		} else {
			state.setStatus(JobStatusCompleted)
			q.logger.Info("job completed", zap.String("job_id", state.job.ID()))
		}
		q.running--
	}

	q.tryStartJobsLocked()
}

// SweepStuck fails active jobs that started more than threshold ago and
// frees their worker slots, so the entity can be enqueued again on the next
// tick. Returns the number of jobs swept.
func (q *Queue) SweepStuck(threshold time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	swept := 0
	for _, id := range q.order {
		state := q.jobs[id]
		if state == nil {
			continue
		}

		state.mu.Lock()
		stuck := state.status == JobStatusActive &&
			!state.swept &&
			state.startedAt != nil &&
			time.Since(*state.startedAt) > threshold
		if stuck {
			state.swept = true
			state.err = errors.New("job exceeded stuck threshold")
			state.status = JobStatusFailed
			now := time.Now()
			state.finishedAt = &now
		}
		state.mu.Unlock()

		if stuck {
			q.running--
			swept++
			q.logger.Warn("swept stuck job",
				zap.String("job_id", id),
				zap.Duration("threshold", threshold))
		}
	}

	if swept > 0 {
		q.tryStartJobsLocked()
	}

	return swept
}

// removeLocked drops a job entry. Must be called with lock held.
func (q *Queue) removeLocked(id string) {
	delete(q.jobs, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Jobs returns a snapshot of all jobs in enqueue order.
func (q *Queue) Jobs() []JobSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]JobSnapshot, 0, len(q.order))
	for _, id := range q.order {
		if state := q.jobs[id]; state != nil {
			snapshots = append(snapshots, state.snapshot())
		}
	}
	return snapshots
}

// ActiveCount returns the number of jobs currently running.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Shutdown cancels running jobs and waits for them to return, up to the
// context deadline.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
