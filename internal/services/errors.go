package services

import (
	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/repositories"

	"github.com/pkg/errors"
)

// Error taxonomy surfaced to callers. Wrapped errors still match with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInactiveEvent         = errors.New("event is not active")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")
	ErrInvalidCounters       = errors.New("invalid counters")
	ErrInvalidArgument       = errors.New("invalid argument")

	// ErrUnavailable means storage kept failing transiently until retries ran out
	ErrUnavailable = database.ErrUnavailable
)

// repoError maps repository sentinels onto the service taxonomy
func repoError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return errors.Wrap(ErrNotFound, msg)
	case errors.Is(err, repositories.ErrDuplicateKey):
		return errors.Wrap(ErrConflict, msg)
	}
	return errors.Wrap(err, msg)
}

// invalidArgument turns boundary parse failures into ErrInvalidArgument
func invalidArgument(err error) error {
	if errors.Is(err, models.ErrInvalidEnum) {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return err
}

// ParseStatus parses a participation status at the boundary
func ParseStatus(raw string) (models.ParticipationStatus, error) {
	s, err := models.ParseParticipationStatus(raw)
	return s, invalidArgument(err)
}
