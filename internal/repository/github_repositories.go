package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// Relevance weights for the repository search. A row collects every weight
// it matches.
const (
	weightExactName    = 100
	weightNamePrefix   = 50
	weightNameContains = 25
	weightSkillEquals  = 20
	weightDescContains = 10
)

type githubRepositoriesRepo struct {
	db *gorm.DB
}

// NewGithubRepositoriesRepo creates a new repository for registered GitHub repositories.
func NewGithubRepositoriesRepo(db *gorm.DB) GithubRepositoriesRepo {
	return &githubRepositoriesRepo{db: db}
}

func (r *githubRepositoriesRepo) Create(ctx context.Context, repo *domain.GithubRepository) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(repo).Error; err != nil {
		return fmt.Errorf("failed to create repository: %w", translate(err))
	}
	return nil
}

func (r *githubRepositoriesRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GithubRepository, error) {
	var repo domain.GithubRepository
	if err := r.db.WithContext(ctx).Preload("User").First(&repo, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &repo, nil
}

func (r *githubRepositoriesRepo) UpdateDescription(ctx context.Context, id uuid.UUID, description *string) error {
	return r.update(ctx, id, "description", description)
}

func (r *githubRepositoriesRepo) UpdateSkills(ctx context.Context, id uuid.UUID, skills []string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.GithubRepository{ID: id}).
		Select("Skills", "UpdatedAt").
		Updates(&domain.GithubRepository{Skills: skills})
	if res.Error != nil {
		return fmt.Errorf("failed to update skills: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *githubRepositoriesRepo) update(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&domain.GithubRepository{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update repository: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *githubRepositoriesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.GithubRepository{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete repository: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *githubRepositoriesRepo) ListURLsByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).
		Model(&domain.GithubRepository{}).
		Where("user_id = ?", userID).
		Pluck("url", &urls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list repository urls: %w", err)
	}
	return urls, nil
}

func (r *githubRepositoriesRepo) List(ctx context.Context, filter domain.RepositoryFilter, limit int) ([]domain.RankedRepository, error) {
	var rows []domain.RankedRepository
	if err := r.listQuery(r.db.WithContext(ctx), filter, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ownerIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ownerIDs = append(ownerIDs, row.UserID)
	}
	var owners []*domain.User
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ownerIDs)).Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("failed to load repository owners: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.User, len(owners))
	for _, u := range owners {
		byID[u.ID] = u
	}
	for i := range rows {
		rows[i].User = byID[rows[i].UserID]
	}

	return rows, nil
}

// listQuery builds the ranked keyset query. Rows are ordered by relevance,
// then newest first, then id, and the cursor predicate follows that order.
func (r *githubRepositoriesRepo) listQuery(db *gorm.DB, filter domain.RepositoryFilter, limit int) *gorm.DB {
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	ranked := db.Model(&domain.GithubRepository{})
	if q == "" {
		ranked = ranked.Select("github_repositories.*, 0 AS relevance")
	} else {
		ranked = ranked.Select(relevanceSelect,
			sql.Named("q", q),
			sql.Named("prefix", escapeLike(q)+"%"),
			sql.Named("contains", "%"+escapeLike(q)+"%"),
		)
	}

	if filter.UserID != nil {
		ranked = ranked.Where("github_repositories.user_id = ?", *filter.UserID)
	}
	for _, skill := range filter.Skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		ranked = ranked.Where(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(github_repositories.skills) AS s(v) WHERE LOWER(s.v) = ?)",
			skill,
		)
	}

	query := db.Table("(?) AS ranked", ranked)
	if q != "" {
		query = query.Where("ranked.relevance > 0")
	}

	if c := filter.After; c != nil {
		query = query.Where(
			db.Where("ranked.relevance < ?", c.Relevance).
				Or("ranked.relevance = ? AND ranked.created_at < ?", c.Relevance, c.CreatedAt).
				Or("ranked.relevance = ? AND ranked.created_at = ? AND ranked.id < ?", c.Relevance, c.CreatedAt, c.ID),
		)
	}

	return query.
		Order("ranked.relevance DESC").
		Order("ranked.created_at DESC").
		Order("ranked.id DESC").
		Limit(limit)
}

var relevanceSelect = fmt.Sprintf(`github_repositories.*, (
	CASE WHEN LOWER(github_repositories.name) = @q THEN %d ELSE 0 END +
	CASE WHEN LOWER(github_repositories.name) LIKE @prefix THEN %d ELSE 0 END +
	CASE WHEN LOWER(github_repositories.name) LIKE @contains THEN %d ELSE 0 END +
	CASE WHEN EXISTS (
		SELECT 1 FROM jsonb_array_elements_text(github_repositories.skills) AS s(v) WHERE LOWER(s.v) = @q
	) THEN %d ELSE 0 END +
	CASE WHEN LOWER(COALESCE(github_repositories.description, '')) LIKE @contains THEN %d ELSE 0 END
) AS relevance`, weightExactName, weightNamePrefix, weightNameContains, weightSkillEquals, weightDescContains)
