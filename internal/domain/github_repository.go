package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GithubRepository is a GitHub repository a user registered on the platform.
type GithubRepository struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uix_github_repositories_user_name,priority:1" json:"user_id"`
	User          *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name          string    `gorm:"size:50;not null;index;uniqueIndex:uix_github_repositories_user_name,priority:2" json:"name"`
	URL           string    `gorm:"size:200;not null;uniqueIndex" json:"url"`
	Description   *string   `gorm:"size:1000" json:"description"`
	Collaborators []string  `gorm:"type:jsonb;serializer:json;not null" json:"collaborators"`
	Contributors  []string  `gorm:"type:jsonb;serializer:json;not null" json:"contributors"`
	Skills        []string  `gorm:"type:jsonb;serializer:json;not null" json:"skills"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (GithubRepository) TableName() string { return "github_repositories" }

func (r *GithubRepository) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Collaborators == nil {
		r.Collaborators = []string{}
	}
	if r.Contributors == nil {
		r.Contributors = []string{}
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
	return nil
}

// OwnerAndName returns the GitHub owner login and repository name parsed
// from the stored URL.
func (r *GithubRepository) OwnerAndName() (string, string, error) {
	return ParseGitHubRepoURL(r.URL)
}

var ErrInvalidRepoURL = errors.New("url must look like https://github.com/<owner>/<name>")

// ParseGitHubRepoURL splits a https://github.com/<owner>/<name> URL. A
// trailing ".git" or slash is tolerated.
func ParseGitHubRepoURL(raw string) (owner, name string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", ErrInvalidRepoURL
	}
	if u.Scheme != "https" || !strings.EqualFold(u.Host, "github.com") {
		return "", "", ErrInvalidRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRepoURL
	}

	name = strings.TrimSuffix(parts[1], ".git")
	if name == "" || len(name) > 50 {
		return "", "", ErrInvalidRepoURL
	}
	return parts[0], name, nil
}

// CanonicalRepoURL builds the stored form of a repository URL.
func CanonicalRepoURL(owner, name string) string {
	return "https://github.com/" + owner + "/" + name
}

// MergeSkills appends added to existing, dropping blanks and
// case-insensitive duplicates while keeping the first spelling.
func MergeSkills(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// CreateRepositoryRequest registers a GitHub repository.
type CreateRepositoryRequest struct {
	URL         string   `json:"url" validate:"required,url,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Skills      []string `json:"skills,omitempty" validate:"max=20,dive,min=1,max=50"`
}

func (r *CreateRepositoryRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if err := ValidateStruct(r); err != nil {
		return err
	}
	if _, _, err := ParseGitHubRepoURL(r.URL); err != nil {
		return NewValidationError([]FieldError{{Field: "url", Message: err.Error()}})
	}
	return nil
}

// UpdateDescriptionRequest replaces a repository description.
type UpdateDescriptionRequest struct {
	Description string `json:"description" validate:"max=1000"`
}

func (r *UpdateDescriptionRequest) Validate() error {
	return ValidateStruct(r)
}

// AddSkillsRequest appends skills to a repository.
type AddSkillsRequest struct {
	Skills []string `json:"skills" validate:"required,min=1,max=20,dive,required,min=1,max=50"`
}

func (r *AddSkillsRequest) Validate() error {
	for i := range r.Skills {
		r.Skills[i] = strings.TrimSpace(r.Skills[i])
	}
	return ValidateStruct(r)
}

// RepositoryStats are live GitHub statistics attached during hydration.
type RepositoryStats struct {
	Language         *string  `json:"repository_language"`
	Topics           []string `json:"topics"`
	ForksCount       int      `json:"forks_count"`
	StargazersCount  int      `json:"stargazers_count"`
	SubscribersCount int      `json:"subscribers_count"`
	OpenIssuesCount  int      `json:"open_issues_count"`
}

// RepositoryOwner is the public summary of the user who registered a repo.
type RepositoryOwner struct {
	ID              uuid.UUID `json:"id"`
	APUID           string    `json:"apu_id"`
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	GitHubUsername  *string   `json:"github_username"`
	GitHubAvatarURL *string   `json:"github_avatar_url"`
}

// OwnerFromUser builds the owner summary for u. A nil user yields nil.
func OwnerFromUser(u *User) *RepositoryOwner {
	if u == nil {
		return nil
	}
	return &RepositoryOwner{
		ID:              u.ID,
		APUID:           u.APUID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		GitHubUsername:  u.GitHubUsername,
		GitHubAvatarURL: u.GitHubAvatarURL,
	}
}

// RepositoryItem is a registered repository as returned by the API.
type RepositoryItem struct {
	GithubRepository
	Owner    *RepositoryOwner `json:"owner"`
	Stats    *RepositoryStats `json:"stats"`
	Hydrated bool             `json:"hydrated"`
}

// RepositoryPage is one page of the repository listing.
type RepositoryPage struct {
	Items      []RepositoryItem `json:"items"`
	Size       int              `json:"size"`
	NextCursor string           `json:"next_cursor"`
	HasNext    bool             `json:"has_next"`
}

// RankedRepository is a listing row with its computed relevance.
type RankedRepository struct {
	GithubRepository
	Relevance int `gorm:"column:relevance"`
}

// RepositoryFilter narrows the repository listing.
type RepositoryFilter struct {
	Query  string
	Skills []string
	UserID *uuid.UUID
	Size   int
	After  *RepositoryCursor
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// RemoteRepository is a repository visible to the caller on GitHub.
type RemoteRepository struct {
	GitHubID    int64     `json:"github_id"`
	FullName    string    `json:"full_name"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description *string   `json:"description"`
	Private     bool      `json:"private"`
	Language    *string   `json:"language"`
	UpdatedAt   time.Time `json:"updated_at"`
	Registered  bool      `json:"registered"`
}
