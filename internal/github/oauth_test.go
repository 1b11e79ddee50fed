package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestOAuth(t *testing.T, handler http.HandlerFunc) *OAuth {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOAuth(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/v1/auth/github/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
}

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth(OAuthConfig{ClientID: "client", ClientSecret: "secret"})
	require.True(t, o.Configured())

	u, err := url.Parse(o.AuthCodeURL("abc"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "abc", u.Query().Get("state"))
	assert.Equal(t, "user:email read:org read:user", u.Query().Get("scope"))
}

func TestExchangeSuccess(t *testing.T) {
	o := newTestOAuth(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "good-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"gho_abc","token_type":"bearer","scope":"user:email"}`)
	})

	token, err := o.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token)
}

func TestExchangeRejected(t *testing.T) {
	o := newTestOAuth(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad_verification_code"}`)
	})

	_, err := o.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrExchangeRejected)
	assert.False(t, IsTransport(err))
}

func TestExchangeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	tokenURL := srv.URL + "/token"
	srv.Close()

	o := NewOAuth(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: tokenURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	})

	_, err := o.Exchange(context.Background(), "code")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExchangeRejected)
	assert.True(t, IsTransport(err))
}
