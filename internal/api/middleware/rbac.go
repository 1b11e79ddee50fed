package middleware

import (
	"net/http"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// RequireRole creates middleware that requires a specific role.
// Should be used after AuthMiddleware.
func RequireRole(requiredRole domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r, requiredRole) {
				WriteError(w, r, domain.NewForbiddenError("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that requires admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin)(next)
}

// DevelopmentOnly hides a route outside the development environment.
func DevelopmentOnly(isDevelopment bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isDevelopment {
				WriteError(w, r, domain.NewForbiddenError("Only available in development"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasRole checks if the current user has a specific role. The loaded user
// wins over the token claims.
func HasRole(r *http.Request, role domain.UserRole) bool {
	if user, ok := GetUserFromContext(r.Context()); ok {
		return user.Role == role
	}
	claims, ok := GetClaimsFromContext(r.Context())
	return ok && domain.UserRole(claims.Role) == role
}

// IsAdmin checks if the current user is an admin.
func IsAdmin(r *http.Request) bool {
	return HasRole(r, domain.RoleAdmin)
}
