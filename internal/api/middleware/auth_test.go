package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// jwtAuthenticator verifies tokens with a JWTManager only.
type jwtAuthenticator struct {
	manager *auth.JWTManager
}

func (a jwtAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	claims, err := a.manager.ValidateAccessToken(token)
	if err != nil {
		return nil, domain.NewAuthenticationError(domain.CodeInvalidToken, "Invalid token")
	}
	return claims, nil
}

type stubUsers map[uuid.UUID]*domain.User

func (s stubUsers) GetActive(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotFound, "User not found")
	}
	if !u.IsActive {
		return nil, domain.NewAuthenticationError(domain.CodeUserNotActive, "Inactive user")
	}
	return u, nil
}

func newJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-123", "test-issuer", time.Minute, time.Hour)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := newJWT()
	userID := uuid.New()

	validToken, err := jwtManager.GenerateAccessToken(userID, "TP000001", string(domain.RoleStudent))
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	refreshToken, _, err := jwtManager.GenerateRefreshToken(userID, "TP000001", string(domain.RoleStudent))
	if err != nil {
		t.Fatalf("Failed to generate refresh token: %v", err)
	}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.APUID()))
	})

	protectedHandler := AuthMiddleware(jwtAuthenticator{jwtManager})(testHandler)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "valid bearer token",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lowercase scheme",
			authHeader:     "bearer " + validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing authorization header",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   domain.CodeAuthenticationFailed,
		},
		{
			name:           "invalid header format",
			authHeader:     "Token " + validToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   domain.CodeAuthenticationFailed,
		},
		{
			name:           "bearer without token",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   domain.CodeAuthenticationFailed,
		},
		{
			name:           "refresh token",
			authHeader:     "Bearer " + refreshToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   domain.CodeInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			protectedHandler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusOK {
				if rr.Body.String() != "TP000001" {
					t.Errorf("Expected APU ID in body, got %q", rr.Body.String())
				}
				return
			}

			if rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("Expected WWW-Authenticate header")
			}
			resp := decodeError(t, rr)
			if resp.Success || resp.Error != tt.expectedCode {
				t.Errorf("Expected error code %s, got %+v", tt.expectedCode, resp)
			}
		})
	}
}

func TestRequireActiveUser(t *testing.T) {
	active := &domain.User{ID: uuid.New(), APUID: "TP000001", IsActive: true}
	inactive := &domain.User{ID: uuid.New(), APUID: "TP000002"}
	users := stubUsers{active.ID: active, inactive.ID: inactive}

	handler := RequireActiveUser(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(user.APUID))
	}))

	tests := []struct {
		name           string
		claims         *auth.Claims
		expectedStatus int
		expectedCode   string
	}{
		{"active user", &auth.Claims{UserID: active.ID}, http.StatusOK, ""},
		{"inactive user", &auth.Claims{UserID: inactive.ID}, http.StatusUnauthorized, domain.CodeUserNotActive},
		{"deleted user", &auth.Claims{UserID: uuid.New()}, http.StatusUnauthorized, domain.CodeUserNotFound},
		{"no claims", nil, http.StatusUnauthorized, domain.CodeAuthenticationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), ClaimsContextKey, tt.claims))
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedCode != "" {
				if resp := decodeError(t, rr); resp.Error != tt.expectedCode {
					t.Errorf("Expected code %s, got %s", tt.expectedCode, resp.Error)
				}
			}
		})
	}
}
