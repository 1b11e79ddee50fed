package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	repos *repository.Repositories
	cache CacheService // Optional cache service
}

// NewUserService creates a new user service.
func NewUserService(repos *repository.Repositories) *UserServiceImpl {
	return &UserServiceImpl{repos: repos}
}

// SetCacheService sets the cache service for this user service
func (s *UserServiceImpl) SetCacheService(cache CacheService) {
	s.cache = cache
}

// GetByID retrieves a user by ID.
func (s *UserServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserResponse, error) {
	if s.cache != nil {
		cachedUser, err := s.cache.GetCachedUser(ctx, id)
		if err == nil {
			utils.Debug("cache hit for user", "user_id", id.String())
			return cachedUser, nil
		}
		utils.Debug("cache miss for user", "user_id", id.String())
	}

	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}

	if s.cache != nil {
		if err := s.cache.CacheUser(ctx, user); err != nil {
			utils.Error("failed to cache user", "user_id", id.String(), "error", err.Error())
		}
	}

	response := user.ToResponse()
	return &response, nil
}

// GetActive loads the user behind a verified access token.
func (s *UserServiceImpl) GetActive(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewAuthenticationError(domain.CodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotActive, "Inactive user")
	}
	return user, nil
}

// List retrieves every user.
func (s *UserServiceImpl) List(ctx context.Context) ([]*domain.UserResponse, error) {
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]*domain.UserResponse, len(users))
	for i, user := range users {
		response := user.ToResponse()
		responses[i] = &response
	}
	return responses, nil
}

// Create adds a user with an explicit role.
func (s *UserServiceImpl) Create(ctx context.Context, req *domain.CreateUserRequest, actorID uuid.UUID) (*domain.UserResponse, error) {
	if _, err := s.repos.Users.GetByAPUID(ctx, req.APUID); err == nil {
		return nil, domain.NewConflictError("User with this APU ID already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check apu id: %w", err)
	}
	if req.Email != nil {
		if _, err := s.repos.Users.GetByEmail(ctx, *req.Email); err == nil {
			return nil, domain.NewConflictError("User with this email already exists")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = domain.RoleFromAPUID(req.APUID)
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user := &domain.User{
		APUID:        req.APUID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     isActive,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, conflict(err, "User with this APU ID or email already exists")
	}

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionCreated,
		ActorID:    actor(actorID),
		Details:    map[string]any{"role": user.Role, "is_active": user.IsActive},
	})

	response := user.ToResponse()
	return &response, nil
}

// Delete hard-deletes a user. Refresh tokens and repositories cascade.
func (s *UserServiceImpl) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "User not found")
	}

	if err := s.repos.Users.Delete(ctx, id); err != nil {
		return notFound(err, "User not found")
	}

	s.invalidate(ctx, id)

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionDeleted,
		ActorID:    actor(actorID),
		Details:    map[string]any{"apu_id": user.APUID, "role": user.Role},
	})
	return nil
}

// UpdateCourse sets the user's course enrollment. The course must exist.
func (s *UserServiceImpl) UpdateCourse(ctx context.Context, id uuid.UUID, req *domain.UpdateCourseRequest) (*domain.UserResponse, error) {
	if _, err := s.repos.Courses.GetByID(ctx, req.UniversityCourseID); err != nil {
		return nil, notFound(err, "University course not found")
	}

	if err := s.repos.Users.UpdateCourse(ctx, id, req.UniversityCourseID, req.CourseYear); err != nil {
		return nil, notFound(err, "User not found")
	}
	s.invalidate(ctx, id)

	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *UserServiceImpl) SetFrameworks(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return preferenceError(s.repos.Users.ReplaceFrameworks(ctx, id, ids))
}

func (s *UserServiceImpl) SetProgrammingLanguages(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return preferenceError(s.repos.Users.ReplaceProgrammingLanguages(ctx, id, ids))
}

func (s *UserServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUserCache(ctx, id); err != nil {
		utils.Error("failed to invalidate user cache", "user_id", id.String(), "error", err.Error())
	}
}

func preferenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUnknownIDs):
		return domain.NewValidationError([]domain.FieldError{{Field: "ids", Message: "contains unknown ids"}})
	case errors.Is(err, repository.ErrNotFound):
		return domain.NewNotFoundError("User not found")
	default:
		return fmt.Errorf("failed to update preferences: %w", err)
	}
}
