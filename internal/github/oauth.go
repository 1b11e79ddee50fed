package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// ExchangeTimeout bounds the authorization code exchange.
const ExchangeTimeout = 10 * time.Second

// Scopes requested when linking an account.
var Scopes = []string{"user:email", "read:org", "read:user"}

// OAuthConfig holds the OAuth app credentials. A zero Endpoint selects
// github.com.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
}

// OAuth runs the GitHub web application flow.
type OAuth struct {
	cfg *oauth2.Config
}

// NewOAuth creates the OAuth flow for the given app.
func NewOAuth(c OAuthConfig) *OAuth {
	endpoint := c.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = githuboauth.Endpoint
	}
	return &OAuth{cfg: &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}}
}

// Configured reports whether client credentials are present.
func (o *OAuth) Configured() bool {
	return o.cfg.ClientID != "" && o.cfg.ClientSecret != ""
}

// AuthCodeURL returns the GitHub authorization URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token. A refusal by
// GitHub wraps ErrExchangeRejected; any other error is a transport failure.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ExchangeTimeout)
	defer cancel()

	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("%w: %s", ErrExchangeRejected, retrieveErr.ErrorCode)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("github token exchange: %w", err)
		}
		return "", fmt.Errorf("%w: %v", ErrExchangeRejected, err)
	}

	if tok.AccessToken == "" {
		return "", ErrExchangeRejected
	}
	return tok.AccessToken, nil
}
