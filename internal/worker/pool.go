package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// Pool manages a fixed number of workers draining a JobQueue.
type Pool struct {
	jobQueue      *JobQueue
	workers       []*Worker
	wg            sync.WaitGroup
	stopped       chan struct{}
	stopOnce      sync.Once
	jobsProcessed int64
	jobsFailed    int64
	mu            sync.RWMutex
}

// Worker is a single goroutine in the pool.
type Worker struct {
	id       int
	jobQueue *JobQueue
}

// Stats represents worker pool statistics.
type Stats struct {
	ActiveWorkers int   `json:"active_workers"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
	QueueSize     int   `json:"queue_size"`
}

// NewPool creates a new worker pool.
func NewPool(jobQueue *JobQueue) *Pool {
	return &Pool{
		jobQueue: jobQueue,
		stopped:  make(chan struct{}),
	}
}

// Start starts the specified number of workers.
func (wp *Pool) Start(numWorkers int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for i := 0; i < numWorkers; i++ {
		worker := &Worker{
			id:       len(wp.workers) + 1,
			jobQueue: wp.jobQueue,
		}
		wp.workers = append(wp.workers, worker)

		wp.wg.Add(1)
		go worker.start(&wp.wg, &wp.jobsProcessed, &wp.jobsFailed)
	}

	utils.Info("worker pool started", slog.Int("num_workers", len(wp.workers)))
}

// Stop signals the workers to exit once the queue is drained and waits
// for them or for ctx.
func (wp *Pool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.stopOnce.Do(func() {
		utils.Info("stopping worker pool", slog.Int("active_workers", len(wp.workers)))
		close(wp.jobQueue.QuitChan)
	})

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		utils.Warn("worker pool shutdown timed out")
		return ctx.Err()
	}

	select {
	case <-wp.stopped:
	default:
		close(wp.stopped)
	}
	return nil
}

// Submit queues job without blocking.
func (wp *Pool) Submit(job *Job) error {
	select {
	case <-wp.jobQueue.QuitChan:
		return ErrPoolStopped
	default:
	}

	select {
	case wp.jobQueue.SubmitChan <- job:
		utils.Debug("job submitted",
			slog.String("job_id", job.ID.String()),
			slog.String("name", job.Name),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// GetStats returns current worker pool statistics.
func (wp *Pool) GetStats() Stats {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return Stats{
		ActiveWorkers: len(wp.workers),
		JobsProcessed: atomic.LoadInt64(&wp.jobsProcessed),
		JobsFailed:    atomic.LoadInt64(&wp.jobsFailed),
		QueueSize:     len(wp.jobQueue.SubmitChan),
	}
}

// IsStopped returns whether the worker pool has been stopped.
func (wp *Pool) IsStopped() bool {
	select {
	case <-wp.stopped:
		return true
	default:
		return false
	}
}

func (w *Worker) start(wg *sync.WaitGroup, processed, failed *int64) {
	defer wg.Done()

	for {
		select {
		case job := <-w.jobQueue.SubmitChan:
			w.processJob(job, processed, failed)
		case <-w.jobQueue.QuitChan:
			// Drain what was queued before the quit signal.
			for {
				select {
				case job := <-w.jobQueue.SubmitChan:
					w.processJob(job, processed, failed)
				default:
					utils.Debug("worker stopped", slog.Int("worker_id", w.id))
					return
				}
			}
		}
	}
}

func (w *Worker) processJob(job *Job, processed, failed *int64) {
	startTime := time.Now()

	err := w.run(job)
	atomic.AddInt64(processed, 1)

	if err != nil {
		atomic.AddInt64(failed, 1)
		utils.Error("job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("name", job.Name),
			slog.Int("worker_id", w.id),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(startTime)),
		)
	} else {
		utils.Debug("job processed",
			slog.String("job_id", job.ID.String()),
			slog.String("name", job.Name),
			slog.Duration("duration", time.Since(startTime)),
		)
	}

	if job.Done == nil {
		return
	}
	select {
	case job.Done <- job.ToResult(err):
	case <-time.After(5 * time.Second):
		utils.Warn("timeout sending job result", slog.String("job_id", job.ID.String()))
	}
}

// run executes the job, turning a panic into an error so one bad job does
// not take the worker down.
func (w *Worker) run(job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if job.Run == nil {
		return fmt.Errorf("job %s has no function", job.Name)
	}
	return job.Run(ctx)
}
