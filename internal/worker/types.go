// Package worker runs background jobs: a bounded job pool and periodic
// maintenance tasks.
package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when the pool's queue has no room.
var ErrQueueFull = errors.New("job queue is full")

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker pool is stopped")

// JobFunc is the unit of work executed by a pool worker.
type JobFunc func(ctx context.Context) error

// Job is a named unit of work submitted to a Pool.
type Job struct {
	ID   uuid.UUID
	Name string
	Run  JobFunc
	// Ctx is the context the job runs with. Background when nil.
	Ctx context.Context
	// Done, when set, receives the job's result.
	Done chan *JobResult
}

// JobResult is the outcome of a job.
type JobResult struct {
	JobID   uuid.UUID `json:"job_id"`
	Name    string    `json:"name"`
	Error   error     `json:"-"`
	Success bool      `json:"success"`
}

// JobQueue holds the channels used to hand jobs to workers.
type JobQueue struct {
	SubmitChan chan *Job
	QuitChan   chan struct{}
}

// NewJobQueue creates a new job queue with the specified buffer size.
func NewJobQueue(bufferSize int) *JobQueue {
	return &JobQueue{
		SubmitChan: make(chan *Job, bufferSize),
		QuitChan:   make(chan struct{}),
	}
}

// NewJob creates a job with a fresh ID.
func NewJob(ctx context.Context, name string, run JobFunc) *Job {
	return &Job{
		ID:   uuid.New(),
		Name: name,
		Run:  run,
		Ctx:  ctx,
	}
}

// ToResult builds the job's result for err.
func (j *Job) ToResult(err error) *JobResult {
	return &JobResult{
		JobID:   j.ID,
		Name:    j.Name,
		Error:   err,
		Success: err == nil,
	}
}
