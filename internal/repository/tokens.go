package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

type refreshTokensRepo struct {
	db *gorm.DB
}

// NewRefreshTokensRepo creates a new refresh token repository.
func NewRefreshTokensRepo(db *gorm.DB) RefreshTokensRepo {
	return &refreshTokensRepo{db: db}
}

func (r *refreshTokensRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to store refresh token: %w", translate(err))
	}
	return nil
}

func (r *refreshTokensRepo) GetActive(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND revoked = ?", token, false).
		First(&rt).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

// Revoke marks token revoked. An already revoked token keeps its original
// revoked_at so the purge window is not extended.
func (r *refreshTokensRepo) Revoke(ctx context.Context, token string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("token = ? AND revoked = ?", token, false).
		Updates(map[string]any{"revoked": true, "revoked_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *refreshTokensRepo) DeleteStale(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("revoked = ? AND revoked_at < ?", true, revokedBefore).
		Delete(&domain.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
