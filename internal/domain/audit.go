package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records a security-relevant action.
type AuditLog struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType EntityType      `gorm:"size:32;not null;index:idx_audit_logs_entity,priority:1" json:"entity_type"`
	EntityID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:2" json:"entity_id"`
	Action     AuditAction     `gorm:"size:32;not null" json:"action"`
	ActorID    *uuid.UUID      `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Details    json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// EntityType defines valid entity types for audit logs.
type EntityType string

const (
	EntityUser                EntityType = "user"
	EntityFramework           EntityType = "framework"
	EntityProgrammingLanguage EntityType = "programming_language"
	EntityGithubRepository    EntityType = "github_repository"
)

// AuditAction defines audit actions.
type AuditAction string

const (
	ActionRegistered     AuditAction = "registered"
	ActionLoggedIn       AuditAction = "logged_in"
	ActionLoginFailed    AuditAction = "login_failed"
	ActionLoggedOut      AuditAction = "logged_out"
	ActionGitHubLinked   AuditAction = "github_linked"
	ActionGitHubUnlinked AuditAction = "github_unlinked"
	ActionCreated        AuditAction = "created"
	ActionUpdated        AuditAction = "updated"
	ActionDeleted        AuditAction = "deleted"
)

// AuditEntry is the input for recording an audit log.
type AuditEntry struct {
	EntityType EntityType
	EntityID   uuid.UUID
	Action     AuditAction
	ActorID    *uuid.UUID
	Details    any
}

// AuditLogFilter represents filters for audit log queries.
type AuditLogFilter struct {
	EntityType *EntityType
	EntityID   *uuid.UUID
	Since      *time.Time
	Limit      int
}
