package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// auditRepo implements the AuditRepo interface.
type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *gorm.DB) AuditRepo {
	return &auditRepo{db: db}
}

// Log creates a new audit log entry.
func (r *auditRepo) Log(ctx context.Context, entry domain.AuditEntry) error {
	var details json.RawMessage
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		details = data
	}

	log := domain.AuditLog{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		Details:    details,
	}
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List retrieves audit logs with filtering, newest first.
func (r *auditRepo) List(ctx context.Context, filter *domain.AuditLogFilter) ([]*domain.AuditLog, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")

	limit := 100
	if filter != nil {
		if filter.EntityType != nil {
			q = q.Where("entity_type = ?", *filter.EntityType)
		}
		if filter.EntityID != nil {
			q = q.Where("entity_id = ?", *filter.EntityID)
		}
		if filter.Since != nil {
			q = q.Where("created_at >= ?", *filter.Since)
		}
		if filter.Limit > 0 && filter.Limit < limit {
			limit = filter.Limit
		}
	}

	var logs []*domain.AuditLog
	if err := q.Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
