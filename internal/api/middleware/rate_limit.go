package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// RateLimit describes a fixed-window limit for one route.
type RateLimit struct {
	Route       string
	MaxRequests int
	Window      time.Duration
}

// RateLimiter enforces per-route, per-IP limits using Redis counters.
// A nil cache or a Redis failure lets every request through.
type RateLimiter struct {
	cache   service.CacheService
	metrics *utils.MetricsCollector
}

// NewRateLimiter creates a rate limiter. Both arguments may be nil.
func NewRateLimiter(cache service.CacheService, metrics *utils.MetricsCollector) *RateLimiter {
	return &RateLimiter{cache: cache, metrics: metrics}
}

// Limit creates middleware enforcing limit.
func (l *RateLimiter) Limit(limit RateLimit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.cache == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := limit.Route + ":" + getClientIP(r)
			allowed, retryAfter, err := l.cache.CheckRateLimit(r.Context(), key, limit.MaxRequests, limit.Window)
			if err != nil {
				utils.Warn("rate limiter unavailable", "route", limit.Route, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if l.metrics != nil {
					l.metrics.RecordRateLimited(limit.Route)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.MaxRequests))
				WriteError(w, r, &domain.APIError{
					Status:  http.StatusTooManyRequests,
					Code:    domain.CodeRateLimitExceeded,
					Message: "Too many requests, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the socket peer address. Forwarding headers are only
// honoured when the router rewrites RemoteAddr for a trusted proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
