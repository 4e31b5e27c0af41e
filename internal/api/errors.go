package api

import (
	"net/http"

	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest     = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound           = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrForbidden          = &Error{Message: "Forbidden", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
	ErrConflict           = &Error{Message: "Resource already exists", StatusCode: http.StatusConflict, Code: "CONFLICT"}
	ErrInactiveEvent      = &Error{Message: "Event is not active", StatusCode: http.StatusUnprocessableEntity, Code: "INACTIVE_EVENT"}
	ErrValidation         = &Error{Message: "Validation error", StatusCode: http.StatusBadRequest, Code: "VALIDATION_ERROR"}
	ErrServiceUnavailable = &Error{Message: "Service unavailable", StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE"}
)

// toAPIError maps service errors onto API errors. The message keeps the wrapped context.
func toAPIError(err error) *Error {
	var apiError *Error
	if errors.As(err, &apiError) {
		return apiError
	}

	var base *Error
	switch {
	case errors.Is(err, services.ErrNotFound):
		base = ErrNotFound
	case errors.Is(err, services.ErrConflict):
		base = ErrConflict
	case errors.Is(err, services.ErrInactiveEvent):
		base = ErrInactiveEvent
	case errors.Is(err, services.ErrForbidden):
		base = ErrForbidden
	case errors.Is(err, services.ErrInvalidRecurrenceRule):
		base = &Error{StatusCode: http.StatusBadRequest, Code: "INVALID_RECURRENCE_RULE"}
	case errors.Is(err, services.ErrInvalidCounters):
		base = &Error{StatusCode: http.StatusBadRequest, Code: "INVALID_COUNTERS"}
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, models.ErrInvalidEnum):
		base = ErrInvalidRequest
	case errors.Is(err, services.ErrUnavailable):
		return ErrServiceUnavailable
	default:
		return ErrInternalServer
	}
	return &Error{Message: err.Error(), StatusCode: base.StatusCode, Code: base.Code}
}

// WriteError writes an error response
func WriteError(c *gin.Context, err error) {
	apiError := toAPIError(err)
	if apiError.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(apiError.StatusCode, ErrorResponse{
		Message: apiError.Message,
		Code:    apiError.Code,
	})
}

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}
