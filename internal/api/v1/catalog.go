package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
)

// catalogHandler serves one catalog (frameworks or programming languages).
type catalogHandler[T domain.CatalogEntry] struct {
	svc service.CatalogService[T]
}

// mountCatalog registers the catalog routes for svc on r. Reads need a
// signed-in user; writes need an administrator.
func mountCatalog[T domain.CatalogEntry](r chi.Router, rt *Router, svc service.CatalogService[T]) {
	h := &catalogHandler[T]{svc: svc}
	kind := domain.KindOf[T]()

	r.Use(rt.authenticated()...)

	r.Group(func(r chi.Router) {
		r.Use(rt.limiter.Limit(limitCatalogRead(kind)))
		r.Get("/", h.list)
		r.Get("/count", h.count)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.limiter.Limit(limitCatalogWrite(kind)), middleware.RequireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}", h.rename)
		r.Delete("/{id}", h.delete)
	})
}

func (h *catalogHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, entries)
}

func (h *catalogHandler[T]) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, domain.CountResponse{Count: n})
}

func (h *catalogHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondOK(w, r, entry)
}

func (h *catalogHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.CatalogRequest) {
		entry, err := h.svc.Create(r.Context(), body.Name, currentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, entry, "")
	}).ServeHTTP(w, r)
}

func (h *catalogHandler[T]) rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.CatalogRequest) {
		entry, err := h.svc.Rename(r.Context(), id, body.Name, currentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondOK(w, r, entry)
	}).ServeHTTP(w, r)
}

func (h *catalogHandler[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id, currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
