package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// usersRepo implements the UsersRepo interface.
type usersRepo struct {
	db *gorm.DB
}

// NewUsersRepo creates a new users repository.
func NewUsersRepo(db *gorm.DB) UsersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *usersRepo) GetByAPUID(ctx context.Context, apuID string) (*domain.User, error) {
	return r.first(ctx, "apu_id = ?", apuID)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *usersRepo) GetByGitHubID(ctx context.Context, githubID int64) (*domain.User, error) {
	return r.first(ctx, "github_id = ?", githubID)
}

func (r *usersRepo) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *usersRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*domain.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by id: %w", err)
	}
	return users, nil
}

func (r *usersRepo) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *usersRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdateCourse(ctx context.Context, id, courseID uuid.UUID, year domain.CourseYear) error {
	return r.updates(ctx, id, map[string]any{
		"university_course_id": courseID,
		"course_year":          year,
	})
}

func (r *usersRepo) LinkGitHub(ctx context.Context, id uuid.UUID, p domain.GitHubProfile) error {
	fields := map[string]any{
		"github_id":           p.ID,
		"github_username":     p.Login,
		"github_access_token": p.AccessToken,
		"github_avatar_url":   p.AvatarURL,
	}
	return r.updates(ctx, id, fields)
}

func (r *usersRepo) UnlinkGitHub(ctx context.Context, id uuid.UUID) error {
	return r.updates(ctx, id, map[string]any{
		"github_id":           nil,
		"github_username":     nil,
		"github_access_token": nil,
		"github_avatar_url":   nil,
	})
}

func (r *usersRepo) UpdateGitHubProfile(ctx context.Context, id uuid.UUID, login, avatarURL string) error {
	return r.updates(ctx, id, map[string]any{
		"github_username":   login,
		"github_avatar_url": avatarURL,
	})
}

func (r *usersRepo) updates(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *usersRepo) ListGitHubLinked(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Where("github_access_token IS NOT NULL AND github_access_token <> ''").
		Where("is_active = ?", true).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	return users, nil
}

func (r *usersRepo) ReplaceFrameworks(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return replaceAssociation[domain.Framework](ctx, r.db, id, "Frameworks", ids)
}

func (r *usersRepo) ReplaceProgrammingLanguages(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return replaceAssociation[domain.ProgrammingLanguage](ctx, r.db, id, "ProgrammingLanguages", ids)
}

// replaceAssociation swaps a user's many-to-many set for the entries in ids.
// Any id that does not exist fails the whole call with ErrUnknownIDs.
func replaceAssociation[T domain.CatalogEntry](ctx context.Context, db *gorm.DB, userID uuid.UUID, assoc string, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := domain.User{ID: userID}
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			return translate(err)
		}

		var entries []T
		if len(ids) > 0 {
			if err := tx.Where("id IN ?", ids).Find(&entries).Error; err != nil {
				return fmt.Errorf("failed to load %s: %w", assoc, err)
			}
			if len(entries) != len(ids) {
				return ErrUnknownIDs
			}
		}

		association := tx.Model(&user).Association(assoc)
		if len(entries) == 0 {
			return association.Clear()
		}
		return association.Replace(entries)
	})
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
