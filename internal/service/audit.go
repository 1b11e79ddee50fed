package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// recordAudit writes an audit entry. A failure is logged and never fails
// the calling operation.
func recordAudit(ctx context.Context, repo repository.AuditRepo, entry domain.AuditEntry) {
	if repo == nil {
		return
	}
	if err := repo.Log(ctx, entry); err != nil {
		utils.Error("failed to write audit log",
			"entity_type", string(entry.EntityType),
			"entity_id", entry.EntityID.String(),
			"action", string(entry.Action),
			"error", err.Error())
	}
}

func actor(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// notFound maps repository.ErrNotFound to a 404 with message.
func notFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewNotFoundError(message)
	}
	return err
}

// conflict maps repository.ErrDuplicate to a 409 with message.
func conflict(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return domain.NewConflictError(message)
	}
	return err
}
