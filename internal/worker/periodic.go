package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// Task is run on every tick of a PeriodicWorker.
type Task func(ctx context.Context) error

// PeriodicWorker runs a task on a fixed interval until stopped.
type PeriodicWorker struct {
	name     string
	interval time.Duration
	task     Task
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPeriodicWorker creates a worker that runs task every interval. Each run
// gets at most timeout; zero means the interval.
func NewPeriodicWorker(name string, interval, timeout time.Duration, task Task) *PeriodicWorker {
	if timeout <= 0 {
		timeout = interval
	}
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		task:     task,
		timeout:  timeout,
	}
}

// Start begins the loop. When runNow is set the task also runs immediately.
func (w *PeriodicWorker) Start(runNow bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		utils.Warn("periodic worker is already running", slog.String("worker", w.name))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.cancel = cancel
	done := make(chan struct{})
	w.done = done

	utils.Info("starting periodic worker",
		slog.String("worker", w.name),
		slog.String("interval", w.interval.String()),
	)

	go w.processLoop(ctx, done, runNow)
}

// Stop cancels the loop and any run in progress, then waits for the loop
// to exit or ctx to expire.
func (w *PeriodicWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	select {
	case <-done:
		utils.Info("periodic worker stopped", slog.String("worker", w.name))
		return nil
	case <-ctx.Done():
		utils.Warn("periodic worker stop timed out", slog.String("worker", w.name))
		return ctx.Err()
	}
}

// RunOnce runs the task synchronously.
func (w *PeriodicWorker) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.task(ctx); err != nil {
		utils.Error("periodic task failed",
			slog.String("worker", w.name),
			slog.String("error", err.Error()),
		)
		return err
	}

	utils.Debug("periodic task completed",
		slog.String("worker", w.name),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (w *PeriodicWorker) processLoop(ctx context.Context, done chan struct{}, runNow bool) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if runNow {
		_ = w.RunOnce(ctx)
	}

	for {
		select {
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
