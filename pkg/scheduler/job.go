package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a refresh job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobKind identifies what a refresh job targets.
type JobKind string

const (
	JobKindChart     JobKind = "chart"
	JobKindDashboard JobKind = "dashboard"
)

// Job is one unit of refresh work. Its ID is deterministic for the entity it
// targets, so enqueueing the same entity twice while a job is still in flight
// is a no-op.
type Job struct {
	Kind     JobKind
	EntityID uuid.UUID
	Run      func(ctx context.Context) error
}

// ID returns the deterministic job identifier for this kind and entity.
func (j Job) ID() string {
	return fmt.Sprintf("%s_%s", j.Kind, j.EntityID)
}

// jobState holds the runtime state of a job.
type jobState struct {
	job        Job
	status     JobStatus
	enqueuedAt time.Time
	startedAt  *time.Time
	finishedAt *time.Time
	err        error
	retries    int

	// swept records that the stuck sweep already failed this job and freed
	// its worker slot while the goroutine was still running.
	swept bool

	mu sync.RWMutex
}

func newJobState(job Job) *jobState {
	return &jobState{
		job:        job,
		status:     JobStatusQueued,
		enqueuedAt: time.Now(),
	}
}

func (js *jobState) getStatus() JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return js.status
}

func (js *jobState) setStatus(status JobStatus) {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.status = status
	now := time.Now()

	switch status {
	case JobStatusActive:
		js.startedAt = &now
	case JobStatusCompleted, JobStatusFailed:
		js.finishedAt = &now
	}
}

func (js *jobState) setError(err error) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.err = err
}

// snapshot returns an immutable view of the job state.
func (js *jobState) snapshot() JobSnapshot {
	js.mu.RLock()
	defer js.mu.RUnlock()

	var errMsg string
	if js.err != nil {
		errMsg = js.err.Error()
	}

	return JobSnapshot{
		ID:         js.job.ID(),
		Kind:       js.job.Kind,
		EntityID:   js.job.EntityID,
		Status:     js.status,
		EnqueuedAt: js.enqueuedAt,
		StartedAt:  js.startedAt,
		FinishedAt: js.finishedAt,
		Retries:    js.retries,
		Error:      errMsg,
	}
}

// JobSnapshot is an immutable view of job state for serialization.
type JobSnapshot struct {
	ID         string     `json:"id"`
	Kind       JobKind    `json:"kind"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Status     JobStatus  `json:"status"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Retries    int        `json:"retries"`
	Error      string     `json:"error,omitempty"`
}
