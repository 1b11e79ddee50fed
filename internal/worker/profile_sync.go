package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// LinkedUserLister pages through users with a stored GitHub token.
type LinkedUserLister interface {
	ListGitHubLinked(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// ProfilePersister refreshes a user's GitHub profile from their token.
type ProfilePersister interface {
	PersistProfile(ctx context.Context, user *domain.User) error
}

const (
	// ProfileSyncInterval is how often linked GitHub profiles are refreshed.
	ProfileSyncInterval = 6 * time.Hour
	// ProfileSyncWorkers bounds concurrent GitHub calls during a sync.
	ProfileSyncWorkers = 4

	profileSyncPageSize = 100
	profileSyncJobLimit = 30 * time.Second
)

// ProfileSyncWorker periodically refreshes the GitHub username and avatar of
// every linked user. Each user is one job on a bounded pool; a failing user
// does not stop the others.
type ProfileSyncWorker struct {
	*PeriodicWorker
	users    LinkedUserLister
	profiles ProfilePersister
	pool     *Pool
	pageSize int
}

// NewProfileSyncWorker creates the sync worker and its job pool. The pool
// is started by Start and stopped by Stop.
func NewProfileSyncWorker(users LinkedUserLister, profiles ProfilePersister) *ProfileSyncWorker {
	w := &ProfileSyncWorker{
		users:    users,
		profiles: profiles,
		pool:     NewPool(NewJobQueue(profileSyncPageSize)),
		pageSize: profileSyncPageSize,
	}
	w.PeriodicWorker = NewPeriodicWorker("profile_sync", ProfileSyncInterval, time.Hour, w.sync)
	return w
}

// Start starts the pool and the periodic loop.
func (w *ProfileSyncWorker) Start(runNow bool) {
	w.pool.Start(ProfileSyncWorkers)
	w.PeriodicWorker.Start(runNow)
}

// Stop stops the loop, then lets queued jobs finish.
func (w *ProfileSyncWorker) Stop(ctx context.Context) error {
	loopErr := w.PeriodicWorker.Stop(ctx)
	poolErr := w.pool.Stop(ctx)
	return errors.Join(loopErr, poolErr)
}

// Stats exposes the job pool statistics.
func (w *ProfileSyncWorker) Stats() Stats {
	return w.pool.GetStats()
}

// sync submits one job per linked user and waits for all of them.
func (w *ProfileSyncWorker) sync(ctx context.Context) error {
	var (
		submitted int
		pending   []chan *JobResult
	)

	for offset := 0; ; offset += w.pageSize {
		users, err := w.users.ListGitHubLinked(ctx, w.pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list linked users: %w", err)
		}

		for _, user := range users {
			done, err := w.submit(ctx, user)
			if err != nil {
				return err
			}
			pending = append(pending, done)
			submitted++
		}

		if len(users) < w.pageSize {
			break
		}
	}

	var failed int
	for _, done := range pending {
		select {
		case res := <-done:
			if !res.Success {
				failed++
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	utils.Info("github profile sync finished",
		slog.Int("users", submitted),
		slog.Int("failed", failed),
	)
	return nil
}

// submit queues a job for user, waiting for queue space.
func (w *ProfileSyncWorker) submit(ctx context.Context, user *domain.User) (chan *JobResult, error) {
	job := NewJob(ctx, "profile_sync:"+user.ID.String(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, profileSyncJobLimit)
		defer cancel()
		return w.profiles.PersistProfile(ctx, user)
	})
	job.Done = make(chan *JobResult, 1)

	for {
		err := w.pool.Submit(job)
		if err == nil {
			return job.Done, nil
		}
		if !errors.Is(err, ErrQueueFull) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
