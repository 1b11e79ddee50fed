package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// SuccessResponse wraps every successful JSON body except the OAuth2 token
// endpoints.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	render.Status(r, status)
	render.JSON(w, r, SuccessResponse{Success: true, Data: data, Message: message})
}

func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	respond(w, r, http.StatusOK, data, "")
}

var writeError = middleware.WriteError

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError([]domain.FieldError{{Field: "id", Message: "must be a valid UUID"}})
	}
	return id, nil
}

// currentUser returns the user loaded by RequireActiveUser.
func currentUser(r *http.Request) *domain.User {
	user, _ := middleware.GetUserFromContext(r.Context())
	return user
}
