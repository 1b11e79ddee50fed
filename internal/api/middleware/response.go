package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// WriteError renders err as an ErrorResponse. Errors that are not an
// *domain.APIError become a 500 and are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := domain.AsAPIError(err)

	if apiErr.Status >= http.StatusInternalServerError {
		utils.Error("request failed",
			"request_id", GetRequestID(r.Context()),
			"path", r.URL.Path,
			"code", apiErr.Code,
			"error", err.Error())
	} else if apiErr.Debug != "" {
		utils.Debug("request rejected",
			"request_id", GetRequestID(r.Context()),
			"path", r.URL.Path,
			"code", apiErr.Code,
			"debug", apiErr.Debug)
	}

	if apiErr.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	render.Status(r, apiErr.Status)
	render.JSON(w, r, ErrorResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Fields,
	})
}
