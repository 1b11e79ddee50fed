// Package v1 provides version 1 of the HTTP API.
package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/config"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// ServiceName labels traces and logs emitted by the API.
const ServiceName = "apcc-api"

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router holds the dependencies needed for v1 API routes.
type Router struct {
	services *service.Services
	cfg      *config.Config
	metrics  *utils.MetricsCollector
	limiter  *middleware.RateLimiter
	db       HealthChecker
}

// NewRouter creates a new v1 API router. db may be nil in tests.
func NewRouter(services *service.Services, cfg *config.Config, metrics *utils.MetricsCollector, db HealthChecker) *Router {
	return &Router{
		services: services,
		cfg:      cfg,
		metrics:  metrics,
		limiter:  middleware.NewRateLimiter(services.Cache, metrics),
		db:       db,
	}
}

// Rate limits per route group.
var (
	limitRegister  = middleware.RateLimit{Route: "auth_register", MaxRequests: 5, Window: time.Hour}
	limitToken     = middleware.RateLimit{Route: "auth_token", MaxRequests: 10, Window: time.Minute}
	limitRefresh   = middleware.RateLimit{Route: "auth_refresh", MaxRequests: 60, Window: time.Hour}
	limitLogout    = middleware.RateLimit{Route: "auth_logout", MaxRequests: 10, Window: time.Minute}
	limitUserGet   = middleware.RateLimit{Route: "users_get", MaxRequests: 1, Window: time.Second}
	limitUserWrite = middleware.RateLimit{Route: "users_write", MaxRequests: 10, Window: time.Minute}
	limitCourses   = middleware.RateLimit{Route: "university_courses", MaxRequests: 20, Window: time.Minute}
	limitRepoRead  = middleware.RateLimit{Route: "repositories_read", MaxRequests: 60, Window: time.Minute}
	limitRepoWrite = middleware.RateLimit{Route: "repositories_write", MaxRequests: 10, Window: time.Minute}
)

func limitCatalogRead(kind domain.CatalogKind) middleware.RateLimit {
	return middleware.RateLimit{Route: string(kind) + "_read", MaxRequests: 60, Window: time.Minute}
}

func limitCatalogWrite(kind domain.CatalogKind) middleware.RateLimit {
	return middleware.RateLimit{Route: string(kind) + "_write", MaxRequests: 10, Window: time.Minute}
}

// Handler builds the complete HTTP handler: infrastructure endpoints plus
// every /api/v1 route.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	if rt.cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TracingMiddleware(ServiceName))
	r.Use(middleware.MetricsMiddleware(rt.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", rt.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, domain.NewNotFoundError("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, &domain.APIError{Status: http.StatusMethodNotAllowed, Code: domain.CodeBadRequest, Message: "Method not allowed"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", rt.handlePing)
		r.Get("/metrics/basic", rt.handleBasicMetrics)
		r.Get("/metrics/circuit-breakers", middleware.CircuitBreakerMetricsHandler)

		r.Route("/auth", rt.authRoutes)
		r.Route("/auth/github", rt.githubAuthRoutes)
		r.Route("/users", rt.userRoutes)
		r.Route("/frameworks", func(r chi.Router) {
			mountCatalog(r, rt, rt.services.Frameworks)
		})
		r.Route("/programming_languages", func(r chi.Router) {
			mountCatalog(r, rt, rt.services.ProgrammingLanguages)
		})
		r.Route("/university_courses", rt.courseRoutes)
		r.Route("/github/repositories", rt.repositoryRoutes)
	})

	return r
}

// authenticated returns the middleware chain for routes that need an active
// user.
func (rt *Router) authenticated() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.AuthMiddleware(rt.services.Auth),
		middleware.RequireActiveUser(rt.services.Users),
	}
}

// handlePing responds to ping requests for testing connectivity.
func (rt *Router) handlePing(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"ping": "pong"}, "pong")
}

func (rt *Router) handleBasicMetrics(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, rt.metrics.GetMetrics())
}

type healthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Duration string            `json:"duration"`
}

// handleHealth pings the database and Redis. A Redis failure only degrades
// the service; a database failure makes it unavailable.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if rt.db != nil {
		if err := rt.db.Health(ctx); err != nil {
			utils.Error("database health check failed", "error", err.Error())
			resp.Checks["database"] = "down"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "up"
		}
	}

	switch {
	case rt.services.Cache == nil:
		resp.Checks["redis"] = "disabled"
	case rt.services.Cache.Health(ctx) != nil:
		resp.Checks["redis"] = "down"
		if status == http.StatusOK {
			resp.Status = "degraded"
		}
	default:
		resp.Checks["redis"] = "up"
	}

	resp.Duration = time.Since(start).String()
	respond(w, r, status, resp, "")
}
