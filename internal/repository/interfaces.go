package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// UsersRepo defines the interface for user data operations.
type UsersRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByAPUID(ctx context.Context, apuID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateCourse(ctx context.Context, id, courseID uuid.UUID, year domain.CourseYear) error

	// LinkGitHub stores the GitHub identity and token on the user.
	LinkGitHub(ctx context.Context, id uuid.UUID, profile domain.GitHubProfile) error
	// UnlinkGitHub clears every GitHub column on the user.
	UnlinkGitHub(ctx context.Context, id uuid.UUID) error
	// UpdateGitHubProfile refreshes the cached login and avatar.
	UpdateGitHubProfile(ctx context.Context, id uuid.UUID, login, avatarURL string) error
	// ListGitHubLinked pages through users with a stored GitHub token.
	ListGitHubLinked(ctx context.Context, limit, offset int) ([]*domain.User, error)

	ReplaceFrameworks(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error
	ReplaceProgrammingLanguages(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error
}

// RefreshTokensRepo defines the interface for persisted refresh tokens.
type RefreshTokensRepo interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// GetActive returns the non-revoked row for token.
	GetActive(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Revoke marks token revoked. ErrNotFound if no row matches.
	Revoke(ctx context.Context, token string, at time.Time) error
	// DeleteStale removes tokens expired before now or revoked before
	// revokedBefore, returning the number of rows deleted.
	DeleteStale(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

// CatalogRepo defines the operations shared by frameworks and languages.
type CatalogRepo[T domain.CatalogEntry] interface {
	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)
	// FindByName matches case-insensitively.
	FindByName(ctx context.Context, name string) (*T, error)
	Create(ctx context.Context, entry *T) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// EnsureNames inserts the names that do not exist yet and returns how
	// many rows were added.
	EnsureNames(ctx context.Context, names []string) (int64, error)
}

// CoursesRepo defines the interface for university courses.
type CoursesRepo interface {
	List(ctx context.Context) ([]domain.UniversityCourse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UniversityCourse, error)
	EnsureCourses(ctx context.Context, courses []domain.UniversityCourse) (int64, error)
}

// GithubRepositoriesRepo defines the interface for registered repositories.
type GithubRepositoriesRepo interface {
	Create(ctx context.Context, repo *domain.GithubRepository) error
	// GetByID loads the repository with its owner.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GithubRepository, error)
	UpdateDescription(ctx context.Context, id uuid.UUID, description *string) error
	UpdateSkills(ctx context.Context, id uuid.UUID, skills []string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListURLsByUser returns the URLs registered by a user.
	ListURLsByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	// List returns up to limit ranked rows after filter.After, owners loaded.
	List(ctx context.Context, filter domain.RepositoryFilter, limit int) ([]domain.RankedRepository, error)
}

// AuditRepo defines the interface for audit log operations.
type AuditRepo interface {
	Log(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, filter *domain.AuditLogFilter) ([]*domain.AuditLog, error)
}

// Repositories aggregates all repository interfaces.
type Repositories struct {
	Users                UsersRepo
	RefreshTokens        RefreshTokensRepo
	Frameworks           CatalogRepo[domain.Framework]
	ProgrammingLanguages CatalogRepo[domain.ProgrammingLanguage]
	Courses              CoursesRepo
	GithubRepositories   GithubRepositoriesRepo
	Audit                AuditRepo
}

// NewRepositories wires every gorm-backed repository onto db.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Users:                NewUsersRepo(db.Gorm),
		RefreshTokens:        NewRefreshTokensRepo(db.Gorm),
		Frameworks:           NewCatalogRepo[domain.Framework](db.Gorm),
		ProgrammingLanguages: NewCatalogRepo[domain.ProgrammingLanguage](db.Gorm),
		Courses:              NewCoursesRepo(db.Gorm),
		GithubRepositories:   NewGithubRepositoriesRepo(db.Gorm),
		Audit:                NewAuditRepo(db.Gorm),
	}
}
