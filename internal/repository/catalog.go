package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// catalogRepo serves both name-only catalogs. The table comes from T.
type catalogRepo[T domain.CatalogEntry] struct {
	db *gorm.DB
}

// NewCatalogRepo creates a repository for frameworks or programming languages.
func NewCatalogRepo[T domain.CatalogEntry](db *gorm.DB) CatalogRepo[T] {
	return &catalogRepo[T]{db: db}
}

func (r *catalogRepo[T]) List(ctx context.Context) ([]T, error) {
	var entries []T
	if err := r.db.WithContext(ctx).Order("name").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return entries, nil
}

func (r *catalogRepo[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return n, nil
}

func (r *catalogRepo[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entry T
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *catalogRepo[T]) FindByName(ctx context.Context, name string) (*T, error) {
	var entry T
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *catalogRepo[T]) Create(ctx context.Context, entry *T) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create catalog entry: %w", translate(err))
	}
	return nil
}

func (r *catalogRepo[T]) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("failed to rename catalog entry: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepo[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepo[T]) EnsureNames(ctx context.Context, names []string) (int64, error) {
	var added int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := r.FindByName(ctx, name); err == nil {
			continue
		}

		entry := domain.NewCatalogEntry[T](name, nil)
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return added, fmt.Errorf("failed to seed %q: %w", name, res.Error)
		}
		added += res.RowsAffected
	}
	return added, nil
}
