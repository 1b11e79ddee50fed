// Package middleware provides HTTP middleware functions.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// ClaimsContextKey is the context key for storing access token claims.
	ClaimsContextKey ContextKey = "claims"
	// UserContextKey is the context key for storing the active user.
	UserContextKey ContextKey = "user"
)

// TokenAuthenticator verifies access tokens.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// ActiveUserLoader loads the user behind verified claims.
type ActiveUserLoader interface {
	GetActive(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuthMiddleware creates middleware that validates the Bearer access token
// from the Authorization header.
func AuthMiddleware(authenticator TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, r, domain.NewAuthenticationError("", "Not authenticated"))
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveUser loads the authenticated user and rejects missing or
// inactive accounts. Must run after AuthMiddleware.
func RequireActiveUser(users ActiveUserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, r, domain.NewAuthenticationError("", "Not authenticated"))
				return
			}

			user, err := users.GetActive(r.Context(), claims.UserID)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext extracts access token claims from the context.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.Claims)
	return claims, ok
}

// GetUserFromContext extracts the active user from the context.
func GetUserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
