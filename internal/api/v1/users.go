package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/domain"
)

func (rt *Router) userRoutes(r chi.Router) {
	r.With(middleware.DevelopmentOnly(rt.cfg.IsDevelopment())).Get("/", rt.handleListUsers)

	r.Group(func(r chi.Router) {
		r.Use(rt.authenticated()...)

		r.With(rt.limiter.Limit(limitUserGet)).Get("/{id}", rt.handleGetUser)

		r.Group(func(r chi.Router) {
			r.Use(rt.limiter.Limit(limitUserWrite))
			r.Put("/me/course", rt.handleUpdateCourse)
			r.Put("/me/frameworks", rt.handleSetFrameworks)
			r.Put("/me/programming_languages", rt.handleSetLanguages)

			r.With(middleware.RequireAdmin).Post("/", rt.handleCreateUser)
			r.With(middleware.RequireAdmin).Delete("/{id}", rt.handleDeleteUser)
		})
	})
}

// handleListUsers lists every user. Only mounted outside production builds.
func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := rt.services.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, users)
}

func (rt *Router) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := rt.services.Users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, user)
}

func (rt *Router) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.CreateUserRequest) {
		user, err := rt.services.Users.Create(r.Context(), body, currentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, user, "User created successfully")
	}).ServeHTTP(w, r)
}

func (rt *Router) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := rt.services.Users.Delete(r.Context(), id, currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"deleted": true}, "User deleted successfully")
}

func (rt *Router) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.UpdateCourseRequest) {
		user, err := rt.services.Users.UpdateCourse(r.Context(), currentUser(r).ID, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondOK(w, r, user)
	}).ServeHTTP(w, r)
}

func (rt *Router) handleSetFrameworks(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.SetPreferencesRequest) {
		if err := rt.services.Users.SetFrameworks(r.Context(), currentUser(r).ID, body.IDs); err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, body, "Frameworks updated")
	}).ServeHTTP(w, r)
}

func (rt *Router) handleSetLanguages(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.SetPreferencesRequest) {
		if err := rt.services.Users.SetProgrammingLanguages(r.Context(), currentUser(r).ID, body.IDs); err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, body, "Programming languages updated")
	}).ServeHTTP(w, r)
}
