package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
)

// GitHub REST calls made while serving a request share one breaker.
const (
	githubRESTBreaker    = "github-rest"
	githubRESTThreshold  = 5
	githubRESTResetAfter = 30 * time.Second
)

func (rt *Router) repositoryRoutes(r chi.Router) {
	r.Use(rt.authenticated()...)

	r.Group(func(r chi.Router) {
		r.Use(rt.limiter.Limit(limitRepoRead))
		r.Get("/", rt.handleListRepositories)
		r.Get("/{id}", rt.handleGetRepository)
		r.With(middleware.CircuitBreakerMiddleware(githubRESTBreaker, githubRESTThreshold, githubRESTResetAfter)).
			Get("/mine/remote", rt.handleListRemoteRepositories)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.limiter.Limit(limitRepoWrite))
		r.With(middleware.CircuitBreakerMiddleware(githubRESTBreaker, githubRESTThreshold, githubRESTResetAfter)).
			Post("/", rt.handleRegisterRepository)
		r.Patch("/{id}/description", rt.handleUpdateDescription)
		r.Post("/{id}/skills", rt.handleAddSkills)
		r.Delete("/{id}", rt.handleDeleteRepository)
	})
}

// handleListRepositories serves the ranked, cursor-paginated listing.
func (rt *Router) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := rt.services.Repositories.List(r.Context(), currentUser(r), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// parseListQuery reads q, skills, user_id, size and cursor. Range checks on
// size and cursor decoding happen in the service.
func parseListQuery(r *http.Request) (service.ListQuery, error) {
	params := r.URL.Query()
	query := service.ListQuery{
		Q:      strings.TrimSpace(params.Get("q")),
		Cursor: params.Get("cursor"),
	}

	if raw := params.Get("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				query.Skills = append(query.Skills, s)
			}
		}
	}

	if raw := params.Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, domain.NewValidationError([]domain.FieldError{{Field: "user_id", Message: "must be a valid UUID"}})
		}
		query.UserID = &id
	}

	if raw := params.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return query, domain.NewValidationError([]domain.FieldError{{Field: "size", Message: "must be an integer"}})
		}
		query.Size = &size
	}

	return query, nil
}

func (rt *Router) handleGetRepository(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := rt.services.Repositories.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, item)
}

func (rt *Router) handleListRemoteRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := rt.services.Repositories.ListRemote(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, repos)
}

func (rt *Router) handleRegisterRepository(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.CreateRepositoryRequest) {
		item, err := rt.services.Repositories.Register(r.Context(), currentUser(r), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, item, "Repository registered")
	}).ServeHTTP(w, r)
}

func (rt *Router) handleUpdateDescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.UpdateDescriptionRequest) {
		item, err := rt.services.Repositories.UpdateDescription(r.Context(), currentUser(r), id, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondOK(w, r, item)
	}).ServeHTTP(w, r)
}

func (rt *Router) handleAddSkills(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.AddSkillsRequest) {
		item, err := rt.services.Repositories.AddSkills(r.Context(), currentUser(r), id, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondOK(w, r, item)
	}).ServeHTTP(w, r)
}

func (rt *Router) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := rt.services.Repositories.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
