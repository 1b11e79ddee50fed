package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apu-code-collab/apcc-api/internal/auth"
	"github.com/apu-code-collab/apcc-api/internal/domain"
)

const testPassword = "Str0ng!Pass"

func newTestJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-jwt", "apcc-api", 15*time.Minute, 7*24*time.Hour)
}

func newAuthEnv(t *testing.T) (*testEnv, *authService) {
	t.Helper()
	env := newTestEnv()
	svc := NewAuthService(env.repos, newTestJWT()).(*authService)
	return env, svc
}

func seedUser(t *testing.T, env *testEnv, apuID string, active bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	return env.users.add(&domain.User{
		APUID:        apuID,
		Email:        strPtr(apuID + "@mail.apu.edu.my"),
		PasswordHash: hash,
		Role:         domain.RoleFromAPUID(apuID),
		IsActive:     active,
	})
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	apiErr := domain.AsAPIError(err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func TestRegister(t *testing.T) {
	env, svc := newAuthEnv(t)
	ctx := context.Background()

	req := &domain.RegisterRequest{APUID: "TC123456", Password: testPassword, Role: strPtr("admin")}
	user, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeacher, user.Role, "role comes from the APU ID")
	assert.True(t, user.IsActive)
	assert.Contains(t, env.audit.actions(), domain.ActionRegistered)

	_, err = svc.Register(ctx, &domain.RegisterRequest{APUID: "TC123456", Password: testPassword})
	requireCode(t, err, http.StatusConflict, domain.CodeConflict)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env, svc := newAuthEnv(t)
	seedUser(t, env, "TP000001", true)

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		APUID:    "TP000002",
		Password: testPassword,
		Email:    strPtr("TP000001@mail.apu.edu.my"),
	})
	requireCode(t, err, http.StatusConflict, domain.CodeConflict)
}

func TestLogin(t *testing.T) {
	env, svc := newAuthEnv(t)
	seedUser(t, env, "TP000001", true)
	seedUser(t, env, "TP000002", false)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, "TP000001", testPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)
		assert.Equal(t, 900, res.ExpiresIn)
		assert.Contains(t, env.tokens.tokens, res.RefreshToken)

		claims, err := svc.Authenticate(ctx, res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "TP000001", claims.APUID())
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "TP999999", testPassword)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeAuthenticationFailed)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "TP000001", "Wr0ng!Pass")
		requireCode(t, err, http.StatusUnauthorized, domain.CodeAuthenticationFailed)
		assert.Contains(t, env.audit.actions(), domain.ActionLoginFailed)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := svc.Login(ctx, "TP000002", testPassword)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeUserNotActive)
	})
}

func TestRefresh(t *testing.T) {
	env, svc := newAuthEnv(t)
	user := seedUser(t, env, "TP000001", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "TP000001", testPassword)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "")
		requireCode(t, err, http.StatusUnauthorized, domain.CodeRefreshTokenMissing)
	})

	t.Run("access token rejected", func(t *testing.T) {
		_, err := svc.Refresh(ctx, login.AccessToken)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeInvalidTokenType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "not-a-jwt")
		requireCode(t, err, http.StatusUnauthorized, domain.CodeInvalidToken)
	})

	t.Run("keeps refresh token", func(t *testing.T) {
		res, err := svc.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, login.RefreshToken, res.RefreshToken)
		assert.NotEmpty(t, res.AccessToken)
	})

	t.Run("expired in database", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.Refresh(ctx, login.RefreshToken)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeTokenExpired)
	})

	t.Run("inactive user", func(t *testing.T) {
		env.users.users[user.ID].IsActive = false
		defer func() { env.users.users[user.ID].IsActive = true }()
		_, err := svc.Refresh(ctx, login.RefreshToken)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeUserNotActive)
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, login.RefreshToken))
		_, err := svc.Refresh(ctx, login.RefreshToken)
		requireCode(t, err, http.StatusUnauthorized, domain.CodeTokenRevoked)
	})
}

func TestLogout(t *testing.T) {
	env, svc := newAuthEnv(t)
	seedUser(t, env, "TP000001", true)
	ctx := context.Background()

	assert.NoError(t, svc.Logout(ctx, ""), "missing token is a no-op")

	err := svc.Logout(ctx, "unknown-token")
	requireCode(t, err, http.StatusUnauthorized, domain.CodeTokenRevoked)

	login, err := svc.Login(ctx, "TP000001", testPassword)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, login.RefreshToken))
	assert.True(t, env.tokens.tokens[login.RefreshToken].Revoked)
	assert.NotNil(t, env.tokens.tokens[login.RefreshToken].RevokedAt)
	assert.Contains(t, env.audit.actions(), domain.ActionLoggedOut)

	first := *env.tokens.tokens[login.RefreshToken].RevokedAt
	svc.now = func() time.Time { return first.Add(time.Hour) }
	defer func() { svc.now = time.Now }()
	require.NoError(t, svc.Logout(ctx, login.RefreshToken), "second logout succeeds")
	assert.Equal(t, first, *env.tokens.tokens[login.RefreshToken].RevokedAt)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	env, svc := newAuthEnv(t)
	seedUser(t, env, "TP000001", true)

	login, err := svc.Login(context.Background(), "TP000001", testPassword)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), login.RefreshToken)
	requireCode(t, err, http.StatusUnauthorized, domain.CodeInvalidTokenType)
}
