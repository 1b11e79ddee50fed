package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// StaleTokenDeleter removes refresh tokens that can no longer be used.
type StaleTokenDeleter interface {
	DeleteStale(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

const (
	// TokenCleanupInterval is how often stale refresh tokens are purged.
	TokenCleanupInterval = time.Hour
	// RevokedTokenRetention is how long revoked tokens are kept.
	RevokedTokenRetention = 24 * time.Hour
)

// TokenCleanupWorker purges expired refresh tokens and tokens revoked more
// than RevokedTokenRetention ago.
type TokenCleanupWorker struct {
	*PeriodicWorker
	tokens  StaleTokenDeleter
	metrics *utils.MetricsCollector
	now     func() time.Time
}

// NewTokenCleanupWorker creates the hourly refresh token cleanup.
func NewTokenCleanupWorker(tokens StaleTokenDeleter, metrics *utils.MetricsCollector) *TokenCleanupWorker {
	w := &TokenCleanupWorker{
		tokens:  tokens,
		metrics: metrics,
		now:     time.Now,
	}
	w.PeriodicWorker = NewPeriodicWorker("token_cleanup", TokenCleanupInterval, time.Minute, w.purge)
	return w
}

func (w *TokenCleanupWorker) purge(ctx context.Context) error {
	now := w.now().UTC()
	n, err := w.tokens.DeleteStale(ctx, now, now.Add(-RevokedTokenRetention))
	if err != nil {
		return fmt.Errorf("failed to delete stale refresh tokens: %w", err)
	}

	if w.metrics != nil {
		w.metrics.AddTokensPurged(n)
	}
	if n > 0 {
		utils.Info("purged stale refresh tokens", slog.Int64("count", n))
	}
	return nil
}
