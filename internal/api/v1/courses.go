package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// courseRoutes are public so the registration form can offer courses.
func (rt *Router) courseRoutes(r chi.Router) {
	r.Use(rt.limiter.Limit(limitCourses))
	r.Get("/", rt.handleListCourses)
	r.Get("/{id}", rt.handleGetCourse)
}

func (rt *Router) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := rt.services.Courses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, courses)
}

func (rt *Router) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	course, err := rt.services.Courses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, course)
}
