package service

import (
	"context"
	"fmt"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/seed"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// Seed targets accepted by Seeder.Run.
const (
	SeedCourses    = "courses"
	SeedFrameworks = "frameworks"
	SeedLanguages  = "languages"
	SeedAll        = "all"
)

// SeedResult reports what one seed target inserted.
type SeedResult struct {
	Target  string
	Added   int64
	Skipped int64
}

// Seeder loads the embedded reference data. Existing rows are skipped.
type Seeder struct {
	repos *repository.Repositories
}

// NewSeeder creates a seeder over repos.
func NewSeeder(repos *repository.Repositories) *Seeder {
	return &Seeder{repos: repos}
}

// Run seeds target, or every target for SeedAll.
func (s *Seeder) Run(ctx context.Context, target string) ([]SeedResult, error) {
	var targets []string
	switch target {
	case SeedAll:
		targets = []string{SeedCourses, SeedFrameworks, SeedLanguages}
	case SeedCourses, SeedFrameworks, SeedLanguages:
		targets = []string{target}
	default:
		return nil, fmt.Errorf("unknown seed target %q", target)
	}

	results := make([]SeedResult, 0, len(targets))
	for _, t := range targets {
		res, err := s.seed(ctx, t)
		if err != nil {
			return results, err
		}
		utils.Info("seed finished", "target", t, "added", res.Added, "skipped", res.Skipped)
		results = append(results, res)
	}
	return results, nil
}

func (s *Seeder) seed(ctx context.Context, target string) (SeedResult, error) {
	switch target {
	case SeedCourses:
		rows, err := seed.Courses()
		if err != nil {
			return SeedResult{}, err
		}
		courses := make([]domain.UniversityCourse, len(rows))
		for i, r := range rows {
			code := r.Code
			courses[i] = domain.UniversityCourse{Name: r.Name, Code: &code}
		}
		added, err := s.repos.Courses.EnsureCourses(ctx, courses)
		if err != nil {
			return SeedResult{}, err
		}
		return SeedResult{Target: target, Added: added, Skipped: int64(len(rows)) - added}, nil

	case SeedFrameworks:
		names, err := seed.Frameworks()
		if err != nil {
			return SeedResult{}, err
		}
		return ensureNames(ctx, target, s.repos.Frameworks, names)

	default:
		names, err := seed.ProgrammingLanguages()
		if err != nil {
			return SeedResult{}, err
		}
		return ensureNames(ctx, target, s.repos.ProgrammingLanguages, names)
	}
}

func ensureNames[T domain.CatalogEntry](ctx context.Context, target string, repo repository.CatalogRepo[T], names []string) (SeedResult, error) {
	added, err := repo.EnsureNames(ctx, names)
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{Target: target, Added: added, Skipped: int64(len(names)) - added}, nil
}
