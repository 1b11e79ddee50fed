package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of failed API responses.
const (
	CodeAuthenticationFailed       = "AUTHENTICATION_FAILED"
	CodeInvalidToken               = "INVALID_TOKEN"
	CodeInvalidTokenType           = "INVALID_TOKEN_TYPE"
	CodeTokenExpired               = "TOKEN_EXPIRED"
	CodeTokenRevoked               = "TOKEN_REVOKED"
	CodeRefreshTokenMissing        = "REFRESH_TOKEN_MISSING"
	CodeRefreshTokenCreationFailed = "REFRESH_TOKEN_CREATION_FAILED"
	CodeUserNotFound               = "USER_NOT_FOUND"
	CodeUserNotActive              = "USER_NOT_ACTIVE"
	CodeForbidden                  = "FORBIDDEN"
	CodeNotFound                   = "NOT_FOUND"
	CodeConflict                   = "CONFLICT"
	CodeBadRequest                 = "BAD_REQUEST"
	CodeValidation                 = "VALIDATION_ERROR"
	CodeInvalidCursor              = "INVALID_CURSOR"
	CodeRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
	CodeGitHubNotLinked            = "GITHUB_NOT_LINKED"
	CodeGitHubUnavailable          = "GITHUB_UNAVAILABLE"
	CodeGitHubTokenExchangeNetwork = "GITHUB_TOKEN_EXCHANGE_NETWORK_ERROR"
	CodeGitHubUserFetchNetwork     = "GITHUB_USER_FETCH_NETWORK_ERROR"
	CodeInternal                   = "INTERNAL_SERVER_ERROR"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is an error that carries everything needed to render an HTTP
// error response. Debug is logged but never sent to clients.
type APIError struct {
	Status  int
	Code    string
	Message string
	Debug   string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	if e.Debug != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Debug)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDebug returns a copy of e carrying the given debug detail.
func (e *APIError) WithDebug(debug string) *APIError {
	cp := *e
	cp.Debug = debug
	return &cp
}

// AsAPIError unwraps err into an *APIError. Unknown errors become a 500.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError().WithDebug(err.Error())
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// NewAuthenticationError creates a 401 error. An empty code defaults to
// AUTHENTICATION_FAILED.
func NewAuthenticationError(code, message string) *APIError {
	if code == "" {
		code = CodeAuthenticationFailed
	}
	if message == "" {
		message = "Could not validate user"
	}
	return &APIError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func NewForbiddenError(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

func NewBadRequestError(code, message string) *APIError {
	if code == "" {
		code = CodeBadRequest
	}
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NewValidationError creates a 422 error listing the offending fields.
func NewValidationError(fields []FieldError) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

func NewBadGatewayError(code, message string) *APIError {
	return &APIError{Status: http.StatusBadGateway, Code: code, Message: message}
}

func NewServiceUnavailableError(code, message string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Code: code, Message: message}
}

func NewInternalError() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Unknown error occurred"}
}
