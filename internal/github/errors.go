package github

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoToken means no access token is available for the call.
	ErrNoToken = errors.New("github: no access token")

	// ErrExchangeRejected means GitHub refused the authorization code.
	ErrExchangeRejected = errors.New("github: authorization code rejected")
)

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError is a non-2xx answer from GitHub. Transport failures are never
// wrapped in an APIError.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// GraphQLErrors is returned when a query fails as a whole.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	if len(e) == 0 {
		return "github: graphql error"
	}
	return fmt.Sprintf("github: graphql: %s (and %d more)", e[0].Message, len(e)-1)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// IsForbidden checks if the error indicates a forbidden resource.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 403
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsTransport reports whether err is a network-level failure rather than an
// answer from GitHub.
func IsTransport(err error) bool {
	if err == nil || errors.Is(err, ErrNoToken) || errors.Is(err, ErrExchangeRejected) {
		return false
	}
	var apiErr *APIError
	var gqlErr GraphQLErrors
	return !errors.As(err, &apiErr) && !IsRateLimited(err) && !errors.As(err, &gqlErr)
}
