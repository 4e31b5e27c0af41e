package api

import (
	"net/http"
	"testing"

	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/services"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.Wrap(services.ErrNotFound, "event"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", errors.Wrap(services.ErrConflict, "rsvp"), http.StatusConflict, "CONFLICT"},
		{"inactive", services.ErrInactiveEvent, http.StatusUnprocessableEntity, "INACTIVE_EVENT"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"rule", services.ErrInvalidRecurrenceRule, http.StatusBadRequest, "INVALID_RECURRENCE_RULE"},
		{"counters", services.ErrInvalidCounters, http.StatusBadRequest, "INVALID_COUNTERS"},
		{"argument", services.ErrInvalidArgument, http.StatusBadRequest, "INVALID_REQUEST"},
		{"enum", errors.Wrap(models.ErrInvalidEnum, "privacy"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"unavailable", errors.Wrap(database.ErrUnavailable, "gave up"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"validation", NewValidationError("title failed on 'required'"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAPIError(tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestToAPIError_HidesInternalDetails(t *testing.T) {
	got := toAPIError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "Internal server error", got.Message)
}
