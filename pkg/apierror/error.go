package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"fakestore-offline/internal/model"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Retryable  bool         `json:"retryable,omitempty"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	body := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Retryable {
		body["retryable"] = true
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}

	data, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   body,
	})
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
	}
}

// ResourceUnavailable creates a 503 for a resource that neither the network
// nor the offline cache could provide.
func ResourceUnavailable(message string) *Error {
	if message == "" {
		message = "Resource is not available offline"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "RESOURCE_UNAVAILABLE",
		Message:    message,
		Retryable:  true,
	}
}

// GenerationConflict creates a retryable 409 for a failed activation.
func GenerationConflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "GENERATION_CONFLICT",
		Message:    message,
		Retryable:  true,
	}
}

// FromError maps offline-layer errors to API errors. Unknown errors become
// a 500 without leaking their text.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, model.ErrResourceUnavailable):
		return ResourceUnavailable(err.Error())
	case errors.Is(err, model.ErrGenerationConflict):
		return GenerationConflict(err.Error())
	case errors.Is(err, model.ErrNoInstallPrompt):
		return Conflict(err.Error())
	case errors.Is(err, model.ErrPersistence):
		return ServiceUnavailable(err.Error())
	default:
		return InternalError("")
	}
}
