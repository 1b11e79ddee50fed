package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/github"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// Callback failures that are reported to the frontend through a redirect.
const (
	CallbackNoEmail       = "github_no_email"
	CallbackNoAccount     = "no_account"
	CallbackAlreadyLinked = "github_already_linked"
)

// GitHubCallbackResult is the outcome of a completed OAuth callback. Either
// Failure is set or Tokens is.
type GitHubCallbackResult struct {
	Failure string
	Email   string
	Tokens  *LoginResult
}

// GitHubAuthServiceImpl implements GitHubAuthService.
type GitHubAuthServiceImpl struct {
	repos   *repository.Repositories
	oauth   OAuthExchanger
	clients GitHubClients
	auth    AuthService
	cache   CacheService
}

// NewGitHubAuthService creates the GitHub linking service.
func NewGitHubAuthService(repos *repository.Repositories, oauth OAuthExchanger, clients GitHubClients, authSvc AuthService) *GitHubAuthServiceImpl {
	return &GitHubAuthServiceImpl{
		repos:   repos,
		oauth:   oauth,
		clients: clients,
		auth:    authSvc,
	}
}

// SetCacheService sets the cache used to drop stale user entries.
func (s *GitHubAuthServiceImpl) SetCacheService(cache CacheService) {
	s.cache = cache
}

func (s *GitHubAuthServiceImpl) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Callback exchanges code, resolves the platform account by email and
// links it to the GitHub identity.
func (s *GitHubAuthServiceImpl) Callback(ctx context.Context, code string) (*GitHubCallbackResult, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, github.ErrExchangeRejected) {
			return nil, domain.NewAuthenticationError("", "GitHub rejected the authorization code").WithDebug(err.Error())
		}
		return nil, domain.NewBadGatewayError(domain.CodeGitHubTokenExchangeNetwork, "Could not reach GitHub to exchange the code").WithDebug(err.Error())
	}

	client, err := s.clients(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to build github client: %w", err)
	}

	profile, err := client.AuthenticatedUser(ctx)
	if err != nil {
		return nil, userFetchError(err)
	}

	email := profile.GetEmail()
	if email == "" {
		email, err = client.PrimaryVerifiedEmail(ctx)
		if err != nil {
			if github.IsTransport(err) {
				return nil, userFetchError(err)
			}
			utils.Warn("failed to list github emails", "github_login", profile.GetLogin(), "error", err.Error())
		}
	}
	if email == "" {
		return &GitHubCallbackResult{Failure: CallbackNoEmail}, nil
	}

	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &GitHubCallbackResult{Failure: CallbackNoAccount, Email: email}, nil
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	if other, err := s.repos.Users.GetByGitHubID(ctx, profile.GetID()); err == nil && other.ID != user.ID {
		return &GitHubCallbackResult{Failure: CallbackAlreadyLinked}, nil
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up github id: %w", err)
	}

	if !user.IsActive {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotActive, "Inactive user")
	}

	link := domain.GitHubProfile{
		ID:          profile.GetID(),
		Login:       profile.GetLogin(),
		AvatarURL:   profile.GetAvatarURL(),
		Email:       email,
		AccessToken: token,
	}
	if err := s.repos.Users.LinkGitHub(ctx, user.ID, link); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return &GitHubCallbackResult{Failure: CallbackAlreadyLinked}, nil
		}
		return nil, fmt.Errorf("failed to link github account: %w", err)
	}
	applyProfile(user, link)
	s.invalidate(ctx, user.ID)

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionGitHubLinked,
		ActorID:    &user.ID,
		Details:    map[string]any{"github_id": link.ID, "github_username": link.Login},
	})
	utils.Info("github account linked", "user_id", user.ID.String(), "github_login", link.Login)

	tokens, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &GitHubCallbackResult{Email: email, Tokens: tokens}, nil
}

// Disconnect clears every GitHub field on user.
func (s *GitHubAuthServiceImpl) Disconnect(ctx context.Context, user *domain.User) error {
	if !user.HasGitHub() && user.GitHubID == nil {
		return domain.NewBadRequestError(domain.CodeGitHubNotLinked, "GitHub account is not linked")
	}

	if err := s.repos.Users.UnlinkGitHub(ctx, user.ID); err != nil {
		return notFound(err, "User not found")
	}
	user.GitHubID, user.GitHubUsername, user.GitHubAccessToken, user.GitHubAvatarURL = nil, nil, nil, nil
	s.invalidate(ctx, user.ID)

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionGitHubUnlinked,
		ActorID:    &user.ID,
	})
	return nil
}

func (s *GitHubAuthServiceImpl) Status(user *domain.User) GitHubStatus {
	return GitHubStatus{
		Connected:       user.GitHubLinked(),
		GitHubUsername:  user.GitHubUsername,
		GitHubAvatarURL: user.GitHubAvatarURL,
	}
}

// PersistProfile refreshes the stored GitHub login, avatar and id using the
// user's own token.
func (s *GitHubAuthServiceImpl) PersistProfile(ctx context.Context, user *domain.User) error {
	if !user.HasGitHub() {
		return domain.NewBadRequestError(domain.CodeGitHubNotLinked, "GitHub account is not linked")
	}

	client, err := s.clients(ctx, *user.GitHubAccessToken)
	if err != nil {
		return fmt.Errorf("failed to build github client: %w", err)
	}
	profile, err := client.AuthenticatedUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch github profile: %w", err)
	}

	if user.GitHubID == nil || *user.GitHubID != profile.GetID() {
		link := domain.GitHubProfile{
			ID:          profile.GetID(),
			Login:       profile.GetLogin(),
			AvatarURL:   profile.GetAvatarURL(),
			AccessToken: *user.GitHubAccessToken,
		}
		if err := s.repos.Users.LinkGitHub(ctx, user.ID, link); err != nil {
			return fmt.Errorf("failed to store github profile: %w", err)
		}
		applyProfile(user, link)
	} else {
		if err := s.repos.Users.UpdateGitHubProfile(ctx, user.ID, profile.GetLogin(), profile.GetAvatarURL()); err != nil {
			return fmt.Errorf("failed to store github profile: %w", err)
		}
		login, avatar := profile.GetLogin(), profile.GetAvatarURL()
		user.GitHubUsername, user.GitHubAvatarURL = &login, &avatar
	}

	s.invalidate(ctx, user.ID)
	return nil
}

func (s *GitHubAuthServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUserCache(ctx, id); err != nil {
		utils.Error("failed to invalidate user cache", "user_id", id.String(), "error", err.Error())
	}
}

func applyProfile(user *domain.User, p domain.GitHubProfile) {
	id, login, avatar, token := p.ID, p.Login, p.AvatarURL, p.AccessToken
	user.GitHubID = &id
	user.GitHubUsername = &login
	user.GitHubAvatarURL = &avatar
	user.GitHubAccessToken = &token
}

func userFetchError(err error) error {
	if github.IsTransport(err) {
		return domain.NewBadGatewayError(domain.CodeGitHubUserFetchNetwork, "Could not reach GitHub to fetch the profile").WithDebug(err.Error())
	}
	return domain.NewAuthenticationError("", "Could not fetch the GitHub profile").WithDebug(err.Error())
}
