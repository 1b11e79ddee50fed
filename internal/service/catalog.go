package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// catalogService serves frameworks and programming languages.
type catalogService[T domain.CatalogEntry] struct {
	repo   repository.CatalogRepo[T]
	audit  repository.AuditRepo
	kind   domain.CatalogKind
	entity domain.EntityType
	label  string
}

// NewCatalogService creates the service for the catalog of T.
func NewCatalogService[T domain.CatalogEntry](repo repository.CatalogRepo[T], audit repository.AuditRepo) CatalogService[T] {
	s := &catalogService[T]{repo: repo, audit: audit, kind: domain.KindOf[T]()}
	switch s.kind {
	case domain.CatalogFrameworks:
		s.entity, s.label = domain.EntityFramework, "Framework"
	default:
		s.entity, s.label = domain.EntityProgrammingLanguage, "Programming language"
	}
	return s
}

func (s *catalogService[T]) List(ctx context.Context) ([]T, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", s.kind, err)
	}
	return entries, nil
}

func (s *catalogService[T]) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s entries: %w", s.kind, err)
	}
	return n, nil
}

func (s *catalogService[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, s.label+" not found")
	}
	return entry, nil
}

// Create adds an entry. Names are unique case-insensitively.
func (s *catalogService[T]) Create(ctx context.Context, name string, actorID uuid.UUID) (*T, error) {
	if err := s.checkNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	entry := domain.NewCatalogEntry[T](name, actor(actorID))
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, conflict(err, s.label+" already exists")
	}

	id := domain.CatalogEntryID(entry)
	s.record(ctx, id, domain.ActionCreated, actorID, name)
	utils.Info("catalog entry created", "kind", string(s.kind), "id", id.String(), "name", name)
	return entry, nil
}

// Rename changes an entry's name.
func (s *catalogService[T]) Rename(ctx context.Context, id uuid.UUID, name string, actorID uuid.UUID) (*T, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, s.label+" not found")
	}
	if err := s.checkNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, id, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError(s.label + " already exists")
		}
		return nil, notFound(err, s.label+" not found")
	}

	s.record(ctx, id, domain.ActionUpdated, actorID, name)
	return s.Get(ctx, id)
}

func (s *catalogService[T]) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, s.label+" not found")
	}
	s.record(ctx, id, domain.ActionDeleted, actorID, "")
	return nil
}

// checkNameFree fails with 409 when another entry than self uses name.
func (s *catalogService[T]) checkNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up %s name: %w", s.kind, err)
	case domain.CatalogEntryID(existing) == self:
		return nil
	default:
		return domain.NewConflictError(s.label + " already exists")
	}
}

func (s *catalogService[T]) record(ctx context.Context, id uuid.UUID, action domain.AuditAction, actorID uuid.UUID, name string) {
	var details any
	if name != "" {
		details = map[string]string{"name": name}
	}
	recordAudit(ctx, s.audit, domain.AuditEntry{
		EntityType: s.entity,
		EntityID:   id,
		Action:     action,
		ActorID:    actor(actorID),
		Details:    details,
	})
}

// courseService implements CourseService.
type courseService struct {
	repo repository.CoursesRepo
}

// NewCourseService creates a new university course service.
func NewCourseService(repo repository.CoursesRepo) CourseService {
	return &courseService{repo: repo}
}

func (s *courseService) List(ctx context.Context) ([]domain.UniversityCourse, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) Get(ctx context.Context, id uuid.UUID) (*domain.UniversityCourse, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "University course not found")
	}
	return course, nil
}
