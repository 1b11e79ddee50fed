package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

func TestPoolRunsJobs(t *testing.T) {
	pool := NewPool(NewJobQueue(10))
	pool.Start(3)

	var ran int64
	results := make([]chan *JobResult, 0, 5)
	for i := 0; i < 5; i++ {
		job := NewJob(context.Background(), "count", func(context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
		job.Done = make(chan *JobResult, 1)
		require.NoError(t, pool.Submit(job))
		results = append(results, job.Done)
	}

	for _, done := range results {
		select {
		case res := <-done:
			assert.True(t, res.Success)
		case <-time.After(2 * time.Second):
			t.Fatal("job did not finish")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(ctx))

	assert.Equal(t, int64(5), atomic.LoadInt64(&ran))
	stats := pool.GetStats()
	assert.Equal(t, 3, stats.ActiveWorkers)
	assert.Equal(t, int64(5), stats.JobsProcessed)
	assert.True(t, pool.IsStopped())
	assert.ErrorIs(t, pool.Submit(NewJob(context.Background(), "late", func(context.Context) error { return nil })), ErrPoolStopped)
}

func TestPoolRecoversFromPanics(t *testing.T) {
	pool := NewPool(NewJobQueue(2))
	pool.Start(1)
	defer pool.Stop(context.Background())

	job := NewJob(context.Background(), "boom", func(context.Context) error { panic("boom") })
	job.Done = make(chan *JobResult, 1)
	require.NoError(t, pool.Submit(job))

	res := <-job.Done
	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Error, "panicked")

	// The worker survives.
	next := NewJob(context.Background(), "ok", func(context.Context) error { return nil })
	next.Done = make(chan *JobResult, 1)
	require.NoError(t, pool.Submit(next))
	assert.True(t, (<-next.Done).Success)
	assert.Equal(t, int64(1), pool.GetStats().JobsFailed)
}

func TestPoolQueueFull(t *testing.T) {
	pool := NewPool(NewJobQueue(1))

	noop := func(context.Context) error { return nil }
	require.NoError(t, pool.Submit(NewJob(context.Background(), "a", noop)))
	assert.ErrorIs(t, pool.Submit(NewJob(context.Background(), "b", noop)), ErrQueueFull)

	// Jobs queued before Start still run.
	pool.Start(1)
	require.NoError(t, pool.Stop(context.Background()))
	assert.Equal(t, int64(1), pool.GetStats().JobsProcessed)
}

func TestPeriodicWorker(t *testing.T) {
	var runs int64
	w := NewPeriodicWorker("test", 10*time.Millisecond, 0, func(context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	})

	w.Start(true)
	w.Start(true)
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&runs) >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop(context.Background()))
	after := atomic.LoadInt64(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs))

	require.NoError(t, w.Stop(context.Background()))
}

func TestPeriodicWorkerRunOnceReportsError(t *testing.T) {
	w := NewPeriodicWorker("failing", time.Hour, 0, func(context.Context) error {
		return errors.New("db down")
	})
	assert.EqualError(t, w.RunOnce(context.Background()), "db down")
}

type fakeTokenStore struct {
	now, revokedBefore time.Time
	deleted            int64
	err                error
}

func (f *fakeTokenStore) DeleteStale(_ context.Context, now, revokedBefore time.Time) (int64, error) {
	f.now, f.revokedBefore = now, revokedBefore
	return f.deleted, f.err
}

func TestTokenCleanupWorker(t *testing.T) {
	store := &fakeTokenStore{deleted: 7}
	metrics := utils.NewMetricsCollector()
	w := NewTokenCleanupWorker(store, metrics)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, fixed, store.now)
	assert.Equal(t, fixed.Add(-24*time.Hour), store.revokedBefore)
	assert.Equal(t, int64(7), metrics.GetMetrics().RefreshTokensPurged)

	store.err = errors.New("connection reset")
	assert.ErrorContains(t, w.RunOnce(context.Background()), "connection reset")
}

type fakeLinkedUsers struct {
	users []*domain.User
	calls int
}

func (f *fakeLinkedUsers) ListGitHubLinked(_ context.Context, limit, offset int) ([]*domain.User, error) {
	f.calls++
	if offset >= len(f.users) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.users) {
		end = len(f.users)
	}
	return f.users[offset:end], nil
}

type fakePersister struct {
	mu     sync.Mutex
	synced map[uuid.UUID]bool
	fail   uuid.UUID
}

func (f *fakePersister) PersistProfile(_ context.Context, u *domain.User) error {
	if u.ID == f.fail {
		return errors.New("github: 401 Bad credentials")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced[u.ID] = true
	return nil
}

func TestProfileSyncWorker(t *testing.T) {
	lister := &fakeLinkedUsers{}
	for i := 0; i < 7; i++ {
		lister.users = append(lister.users, &domain.User{ID: uuid.New()})
	}
	persister := &fakePersister{synced: make(map[uuid.UUID]bool), fail: lister.users[2].ID}

	w := NewProfileSyncWorker(lister, persister)
	w.pageSize = 3
	w.pool.Start(ProfileSyncWorkers)
	defer w.pool.Stop(context.Background())

	require.NoError(t, w.RunOnce(context.Background()))

	assert.Equal(t, 3, lister.calls)
	assert.Len(t, persister.synced, 6)
	assert.False(t, persister.synced[lister.users[2].ID])
	stats := w.Stats()
	assert.Equal(t, int64(7), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsFailed)
}
