package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

type coursesRepo struct {
	db *gorm.DB
}

// NewCoursesRepo creates a new university course repository.
func NewCoursesRepo(db *gorm.DB) CoursesRepo {
	return &coursesRepo{db: db}
}

func (r *coursesRepo) List(ctx context.Context) ([]domain.UniversityCourse, error) {
	var courses []domain.UniversityCourse
	if err := r.db.WithContext(ctx).Order("name").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (r *coursesRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UniversityCourse, error) {
	var course domain.UniversityCourse
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (r *coursesRepo) EnsureCourses(ctx context.Context, courses []domain.UniversityCourse) (int64, error) {
	if len(courses) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&courses, 100)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to seed courses: %w", res.Error)
	}
	return res.RowsAffected, nil
}
