// Package service defines interfaces for business logic services.
package service

import (
	"context"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/github"
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// Register creates a new user account. The role is derived from the APU ID.
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserResponse, error)

	// Login authenticates a user by APU ID and password and issues tokens.
	Login(ctx context.Context, apuID, password string) (*LoginResult, error)

	// IssueTokens creates an access token and a persisted refresh token.
	IssueTokens(ctx context.Context, user *domain.User) (*LoginResult, error)

	// Refresh returns a new access token for a stored refresh token.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)

	// Logout revokes a refresh token. An empty token is a no-op.
	Logout(ctx context.Context, refreshToken string) error

	// Authenticate verifies a Bearer access token.
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// LoginResult carries the tokens issued to a user.
type LoginResult struct {
	User             *domain.User
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int
	RefreshExpiresAt time.Time
}

// TokenResponse renders r for the token and refresh endpoints.
func (r *LoginResult) TokenResponse() domain.TokenResponse {
	return domain.TokenResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    r.ExpiresIn,
	}
}

// UserService defines the interface for user management operations.
type UserService interface {
	// GetByID retrieves a user by ID, cache first.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserResponse, error)

	// GetActive loads the user behind a verified token.
	GetActive(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// List returns every user.
	List(ctx context.Context) ([]*domain.UserResponse, error)

	// Create adds a user with an explicit role (admin only).
	Create(ctx context.Context, req *domain.CreateUserRequest, actorID uuid.UUID) (*domain.UserResponse, error)

	// Delete removes a user account (admin only).
	Delete(ctx context.Context, id, actorID uuid.UUID) error

	// UpdateCourse sets the user's university course and year.
	UpdateCourse(ctx context.Context, id uuid.UUID, req *domain.UpdateCourseRequest) (*domain.UserResponse, error)

	// SetFrameworks replaces the user's preferred frameworks.
	SetFrameworks(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error

	// SetProgrammingLanguages replaces the user's preferred languages.
	SetProgrammingLanguages(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error
}

// GitHubAuthService defines the GitHub account linking flow.
type GitHubAuthService interface {
	// LoginURL returns the GitHub authorization URL for state.
	LoginURL(state string) string

	// Callback finishes the OAuth flow for code.
	Callback(ctx context.Context, code string) (*GitHubCallbackResult, error)

	// Disconnect clears the user's GitHub link.
	Disconnect(ctx context.Context, user *domain.User) error

	// Status reports the user's GitHub link.
	Status(user *domain.User) GitHubStatus

	// PersistProfile refreshes the stored GitHub profile from the user's token.
	PersistProfile(ctx context.Context, user *domain.User) error
}

// GitHubStatus is the public view of a user's GitHub link.
type GitHubStatus struct {
	Connected       bool    `json:"connected"`
	GitHubUsername  *string `json:"github_username"`
	GitHubAvatarURL *string `json:"github_avatar_url"`
}

// CatalogService defines the operations shared by frameworks and languages.
type CatalogService[T domain.CatalogEntry] interface {
	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, name string, actorID uuid.UUID) (*T, error)
	Rename(ctx context.Context, id uuid.UUID, name string, actorID uuid.UUID) (*T, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
}

// CourseService defines read access to university courses.
type CourseService interface {
	List(ctx context.Context) ([]domain.UniversityCourse, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.UniversityCourse, error)
}

// RepositoryService defines the GitHub repository operations.
type RepositoryService interface {
	// Register confirms the repository on GitHub and stores it.
	Register(ctx context.Context, user *domain.User, req *domain.CreateRepositoryRequest) (*domain.RepositoryItem, error)

	// ListRemote lists the repositories the user can access on GitHub.
	ListRemote(ctx context.Context, user *domain.User) ([]domain.RemoteRepository, error)

	UpdateDescription(ctx context.Context, user *domain.User, id uuid.UUID, req *domain.UpdateDescriptionRequest) (*domain.RepositoryItem, error)
	AddSkills(ctx context.Context, user *domain.User, id uuid.UUID, req *domain.AddSkillsRequest) (*domain.RepositoryItem, error)
	Delete(ctx context.Context, user *domain.User, id uuid.UUID) error

	// Get returns one hydrated repository.
	Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.RepositoryItem, error)

	// List returns one page of the ranked, hydrated listing.
	List(ctx context.Context, viewer *domain.User, query ListQuery) (*domain.RepositoryPage, error)
}

// ListQuery holds the raw listing parameters.
type ListQuery struct {
	Q      string
	Skills []string
	UserID *uuid.UUID
	Size   *int // nil means the default page size
	Cursor string
}

// GitHubClient is the subset of the GitHub client used by services.
type GitHubClient interface {
	AuthenticatedUser(ctx context.Context) (*gh.User, error)
	PrimaryVerifiedEmail(ctx context.Context) (string, error)
	GetRepository(ctx context.Context, owner, name string) (*gh.Repository, error)
	ListCollaborators(ctx context.Context, owner, name string) ([]string, error)
	ListAccessibleRepos(ctx context.Context) ([]*gh.Repository, error)
	RepositoryStats(ctx context.Context, refs []github.RepoRef) ([]*domain.RepositoryStats, error)
}

// GitHubClients builds a GitHubClient for an access token.
type GitHubClients func(ctx context.Context, token string) (GitHubClient, error)

// GitHubClientsFrom adapts a github.Factory.
func GitHubClientsFrom(f *github.Factory) GitHubClients {
	return func(ctx context.Context, token string) (GitHubClient, error) {
		c, err := f.ForToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// OAuthExchanger runs the GitHub authorization code flow.
type OAuthExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// Services aggregates all service interfaces.
type Services struct {
	Auth                 AuthService
	Users                UserService
	GitHubAuth           GitHubAuthService
	Frameworks           CatalogService[domain.Framework]
	ProgrammingLanguages CatalogService[domain.ProgrammingLanguage]
	Courses              CourseService
	Repositories         RepositoryService
	Cache                CacheService
	Seeder               *Seeder
}
