// Package github talks to the GitHub REST and GraphQL APIs on behalf of
// linked users and runs the OAuth web flow.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/apu-code-collab/apcc-api/internal/utils"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	DefaultGraphQLURL = "https://api.github.com/graphql"
)

// Options configures clients built by a Factory. Empty URLs select the
// public GitHub endpoints.
type Options struct {
	BaseURL    string
	GraphQLURL string
	Timeout    time.Duration
	Metrics    *utils.MetricsCollector
}

// Factory builds token-scoped clients.
type Factory struct {
	opts   Options
	tracer trace.Tracer
}

// NewFactory creates a client factory.
func NewFactory(opts Options) *Factory {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.GraphQLURL == "" {
		opts.GraphQLURL = DefaultGraphQLURL
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewMetricsCollector()
	}
	return &Factory{opts: opts, tracer: utils.GetTracer("github")}
}

// ForToken returns a client authenticated with token.
func (f *Factory) ForToken(ctx context.Context, token string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = f.opts.Timeout

	client := gh.NewClient(tc)
	if f.opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(f.opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &Client{
		gh:          client,
		http:        tc,
		graphqlURL:  f.opts.GraphQLURL,
		rateLimiter: NewRateLimiter(),
		metrics:     f.opts.Metrics,
		tracer:      f.tracer,
	}, nil
}

// Client wraps the go-github client for a single access token.
type Client struct {
	gh          *gh.Client
	http        *http.Client
	graphqlURL  string
	rateLimiter *RateLimiter
	metrics     *utils.MetricsCollector
	tracer      trace.Tracer
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// AuthenticatedUser fetches the profile of the token owner.
func (c *Client) AuthenticatedUser(ctx context.Context) (*gh.User, error) {
	var user *gh.User
	err := c.do(ctx, "get_user", func(ctx context.Context) (*gh.Response, error) {
		u, resp, err := c.gh.Users.Get(ctx, "")
		user = u
		return resp, err
	})
	return user, err
}

// PrimaryVerifiedEmail returns the primary verified address of the token
// owner, falling back to any verified address. Empty when there is none.
func (c *Client) PrimaryVerifiedEmail(ctx context.Context) (string, error) {
	var emails []*gh.UserEmail
	opts := &gh.ListOptions{PerPage: 100}

	for {
		var page []*gh.UserEmail
		var next int
		err := c.do(ctx, "list_emails", func(ctx context.Context) (*gh.Response, error) {
			e, resp, err := c.gh.Users.ListEmails(ctx, opts)
			page = e
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return "", err
		}
		emails = append(emails, page...)
		if next == 0 {
			break
		}
		opts.Page = next
	}

	var fallback string
	for _, e := range emails {
		if !e.GetVerified() {
			continue
		}
		if e.GetPrimary() {
			return e.GetEmail(), nil
		}
		if fallback == "" {
			fallback = e.GetEmail()
		}
	}
	return fallback, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*gh.Repository, error) {
	var repo *gh.Repository
	err := c.do(ctx, "get_repo", func(ctx context.Context) (*gh.Response, error) {
		r, resp, err := c.gh.Repositories.Get(ctx, owner, name)
		repo = r
		return resp, err
	})
	return repo, err
}

// ListCollaborators returns the logins of a repository's collaborators. It
// needs push access, so callers usually treat 403 as "unknown".
func (c *Client) ListCollaborators(ctx context.Context, owner, name string) ([]string, error) {
	var logins []string
	opts := &gh.ListCollaboratorsOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	for {
		var next int
		err := c.do(ctx, "list_collaborators", func(ctx context.Context) (*gh.Response, error) {
			users, resp, err := c.gh.Repositories.ListCollaborators(ctx, owner, name, opts)
			for _, u := range users {
				logins = append(logins, u.GetLogin())
			}
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		if next == 0 {
			return logins, nil
		}
		opts.Page = next
	}
}

// ListAccessibleRepos returns every repository the token owner can access,
// most recently updated first.
func (c *Client) ListAccessibleRepos(ctx context.Context) ([]*gh.Repository, error) {
	var all []*gh.Repository

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for {
		var next int
		err := c.do(ctx, "list_repos", func(ctx context.Context) (*gh.Response, error) {
			repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
			all = append(all, repos...)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
}

// do runs one REST call with throttling, tracing, metrics and error mapping.
func (c *Client) do(ctx context.Context, op string, fn func(context.Context) (*gh.Response, error)) error {
	ctx, span := c.tracer.Start(ctx, "github."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limited")
		return err
	}

	start := time.Now()
	resp, err := fn(ctx)
	if resp != nil {
		c.rateLimiter.UpdateFromResponse(resp.Response)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}

	err = c.wrapError(err, op)
	c.metrics.RecordGitHubCall(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now().Add(time.Minute)
		if abuseErr.RetryAfter != nil {
			resetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{ResetAt: resetAt, Limit: c.rateLimiter.Limit()}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return apiErr
	}

	return fmt.Errorf("%s: %w", operation, err)
}
