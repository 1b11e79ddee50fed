package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

const invalidCredentialsMessage = "Incorrect APU ID or password"

// authService implements the AuthService interface.
type authService struct {
	repos      *repository.Repositories
	jwtManager *auth.JWTManager
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(repos *repository.Repositories, jwtManager *auth.JWTManager) AuthService {
	return &authService{
		repos:      repos,
		jwtManager: jwtManager,
		now:        time.Now,
	}
}

// Register creates a new user account. Requests are validated by the caller.
func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserResponse, error) {
	if _, err := s.repos.Users.GetByAPUID(ctx, req.APUID); err == nil {
		return nil, domain.NewConflictError("APU ID already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check apu id: %w", err)
	}

	if req.Email != nil {
		if _, err := s.repos.Users.GetByEmail(ctx, *req.Email); err == nil {
			return nil, domain.NewConflictError("Email already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		APUID:        req.APUID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleFromAPUID(req.APUID),
		IsActive:     true,
	}

	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, conflict(err, "APU ID or email already registered")
	}

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionRegistered,
		ActorID:    &user.ID,
		Details:    map[string]string{"role": string(user.Role)},
	})
	utils.Info("user registered", "user_id", user.ID.String(), "role", string(user.Role))

	response := user.ToResponse()
	return &response, nil
}

// Login authenticates a user. Unknown users still pay for a bcrypt
// comparison so both failure paths take the same time.
func (s *authService) Login(ctx context.Context, apuID, password string) (*LoginResult, error) {
	user, err := s.repos.Users.GetByAPUID(ctx, apuID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.DummyCompare(password)
			return nil, domain.NewAuthenticationError("", invalidCredentialsMessage)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.ComparePassword(user.PasswordHash, password) {
		recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
			EntityType: domain.EntityUser,
			EntityID:   user.ID,
			Action:     domain.ActionLoginFailed,
		})
		return nil, domain.NewAuthenticationError("", invalidCredentialsMessage)
	}

	if !user.IsActive {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotActive, "Inactive user")
	}

	result, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		Action:     domain.ActionLoggedIn,
		ActorID:    &user.ID,
	})
	return result, nil
}

// IssueTokens creates an access token and a persisted refresh token.
func (s *authService) IssueTokens(ctx context.Context, user *domain.User) (*LoginResult, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.APUID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, expiresAt, err := s.jwtManager.GenerateRefreshToken(user.ID, user.APUID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.repos.RefreshTokens.Create(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}); err != nil {
		utils.Error("failed to store refresh token", "user_id", user.ID.String(), "error", err.Error())
		return nil, domain.NewAuthenticationError(domain.CodeRefreshTokenCreationFailed, "Could not create refresh token")
	}

	return &LoginResult{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int(s.jwtManager.AccessTTL().Seconds()),
		RefreshExpiresAt: expiresAt,
	}, nil
}

// Refresh returns a new access token. The refresh token itself is kept.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, domain.NewAuthenticationError(domain.CodeRefreshTokenMissing, "Refresh token missing")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}

	stored, err := s.repos.RefreshTokens.GetActive(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewAuthenticationError(domain.CodeTokenRevoked, "Refresh token has been revoked")
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if stored.IsExpired(s.now()) {
		return nil, domain.NewAuthenticationError(domain.CodeTokenExpired, "Refresh token has expired")
	}

	user, err := s.repos.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewAuthenticationError(domain.CodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotActive, "Inactive user")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.APUID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &LoginResult{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int(s.jwtManager.AccessTTL().Seconds()),
		RefreshExpiresAt: stored.ExpiresAt,
	}, nil
}

// Logout revokes refreshToken. Revoking an already revoked token succeeds.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.repos.RefreshTokens.Revoke(ctx, refreshToken, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewAuthenticationError(domain.CodeTokenRevoked, "Refresh token not recognised")
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if claims, err := s.jwtManager.ValidateRefreshToken(refreshToken); err == nil {
		recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
			EntityType: domain.EntityUser,
			EntityID:   claims.UserID,
			Action:     domain.ActionLoggedOut,
			ActorID:    &claims.UserID,
		})
	}
	return nil
}

// Authenticate verifies a Bearer access token.
func (s *authService) Authenticate(_ context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, tokenError(err)
	}
	return claims, nil
}

// tokenError maps JWT validation failures to API errors.
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return domain.NewAuthenticationError(domain.CodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrInvalidTokenType):
		return domain.NewAuthenticationError(domain.CodeInvalidTokenType, "Invalid token type")
	default:
		return domain.NewAuthenticationError(domain.CodeInvalidToken, "Could not validate credentials").WithDebug(err.Error())
	}
}
