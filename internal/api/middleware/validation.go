package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Validator interface for types that can validate themselves.
type Validator interface {
	Validate() error
}

// ValidateJSON creates middleware that decodes and validates JSON request
// bodies. T must implement the Validator interface; unknown fields are
// ignored.
func ValidateJSON[T Validator](next func(w http.ResponseWriter, r *http.Request, body T)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
			writeFieldError(w, r, "content-type", "Content-Type must be application/json")
			return
		}

		body, err := DecodeJSON[T](r)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		next(w, r, body)
	})
}

// DecodeJSON reads and validates a JSON body of type T.
func DecodeJSON[T Validator](r *http.Request) (T, error) {
	var body T
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))

	if err := decoder.Decode(&body); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return body, fieldError("body", "request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return body, fieldError("json", "invalid JSON format")
		case errors.As(err, &typeErr):
			return body, fieldError(typeErr.Field, "must be of type "+typeErr.Type.String())
		case errors.As(err, &maxErr):
			return body, fieldError("body", "request body is too large")
		default:
			return body, fieldError("json", "failed to parse JSON: "+err.Error())
		}
	}

	if v := reflect.ValueOf(body); v.Kind() == reflect.Pointer && v.IsNil() {
		return body, fieldError("body", "request body is required")
	}

	if err := body.Validate(); err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			return body, apiErr
		}
		return body, parseValidationError(err)
	}
	return body, nil
}

// parseValidationError converts a "field: message" error into a 422.
func parseValidationError(err error) error {
	field, message, ok := strings.Cut(err.Error(), ":")
	if !ok {
		return fieldError("general", err.Error())
	}
	return fieldError(strings.TrimSpace(field), strings.TrimSpace(message))
}

func fieldError(field, message string) *domain.APIError {
	return domain.NewValidationError([]domain.FieldError{{Field: field, Message: message}})
}

func writeFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	WriteError(w, r, fieldError(field, message))
}
