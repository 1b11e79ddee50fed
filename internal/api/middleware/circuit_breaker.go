package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// CircuitBreakerMiddleware guards routes that depend on an upstream service.
// A 5xx response counts as a failure; while the breaker is open requests
// are rejected with 503 before reaching the handler.
func CircuitBreakerMiddleware(serviceName string, failureThreshold int32, resetTimeout time.Duration) func(http.Handler) http.Handler {
	breaker := utils.GetCircuitBreaker(serviceName, utils.CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		ResetTimeout:     resetTimeout,
		CallTimeout:      30 * time.Second,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			err := breaker.Call(r.Context(), func(callCtx context.Context) error {
				next.ServeHTTP(wrapper, r.WithContext(callCtx))
				if wrapper.statusCode >= http.StatusInternalServerError {
					return fmt.Errorf("upstream service error: %d", wrapper.statusCode)
				}
				return nil
			})

			var cbErr *utils.CircuitBreakerError
			if errors.As(err, &cbErr) {
				utils.Warn("request rejected by circuit breaker", "service", serviceName, "state", cbErr.State.String())
				WriteError(w, r, domain.NewServiceUnavailableError(domain.CodeGitHubUnavailable, "Service temporarily unavailable"))
			}
		})
	}
}

// responseWriterWrapper wraps http.ResponseWriter to capture status codes
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// CircuitBreakerMetricsHandler provides circuit breaker metrics endpoint
func CircuitBreakerMetricsHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    map[string]any{"circuit_breakers": utils.GetCircuitBreakerMetrics()},
	})
}
