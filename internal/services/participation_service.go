package services

import (
	"context"
	"time"

	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/messaging"
	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/repositories"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ParticipationService is the participation ledger. It is the only writer of
// Event.CurrentParticipants, which it re-derives from the ledger inside every mutating transaction.
type ParticipationService struct {
	tx             *database.Transactor
	events         *repositories.EventRepository
	participations *repositories.ParticipationRepository
	publisher      messaging.Publisher
	metrics        *metrics.Metrics
}

// NewParticipationService creates a new participation service. publisher may be nil.
func NewParticipationService(
	tx *database.Transactor,
	events *repositories.EventRepository,
	participations *repositories.ParticipationRepository,
	publisher messaging.Publisher,
	m *metrics.Metrics,
) *ParticipationService {
	if m == nil {
		m = metrics.Default()
	}
	return &ParticipationService{
		tx:             tx,
		events:         events,
		participations: participations,
		publisher:      publisher,
		metrics:        m,
	}
}

// RSVP records a participant's first response to an event
func (s *ParticipationService) RSVP(ctx context.Context, eventID uuid.UUID, participantID string, status models.ParticipationStatus, message *string) (*models.Participation, error) {
	defer newrelic.FromContext(ctx).StartSegment("ledger.RSVP").End()

	if err := validateParticipant(participantID, status); err != nil {
		return nil, err
	}

	var created *models.Participation
	err := s.mutate(ctx, "rsvp", func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		participations := s.participations.WithTx(tx)

		event, err := events.LockByID(ctx, eventID)
		if err != nil {
			return repoError(err, "event")
		}
		if !event.Active {
			return errors.Wrapf(ErrInactiveEvent, "event %s", eventID)
		}

		_, err = participations.Get(ctx, eventID, participantID)
		switch {
		case err == nil:
			return errors.Wrapf(ErrConflict, "%s already responded to event %s", participantID, eventID)
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		p := &models.Participation{
			EventID:       eventID,
			ParticipantID: participantID,
			Status:        status,
			Message:       message,
		}
		if err := participations.Create(ctx, p); err != nil {
			return repoError(err, "participation")
		}

		if status == models.StatusGoing {
			if _, _, err := s.recount(ctx, tx, eventID); err != nil {
				return err
			}
		}

		created = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.metrics.IncrementCounter(metrics.CounterRSVPConflicts)
		}
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterRSVPCreated)
	log.Info().
		Str("event_id", eventID.String()).
		Str("participant_id", participantID).
		Str("status", string(status)).
		Msg("rsvp recorded")

	s.publishSnapshot(ctx, eventID)
	return created, nil
}

// UpdateRSVP changes the status and message of an existing response
func (s *ParticipationService) UpdateRSVP(ctx context.Context, eventID uuid.UUID, participantID string, status models.ParticipationStatus, message *string) (*models.Participation, error) {
	defer newrelic.FromContext(ctx).StartSegment("ledger.UpdateRSVP").End()

	if err := validateParticipant(participantID, status); err != nil {
		return nil, err
	}

	var updated *models.Participation
	err := s.mutate(ctx, "update_rsvp", func(tx *gorm.DB) error {
		participations := s.participations.WithTx(tx)

		if _, err := s.events.WithTx(tx).LockByID(ctx, eventID); err != nil {
			return repoError(err, "event")
		}

		p, err := participations.Get(ctx, eventID, participantID)
		if err != nil {
			return repoError(err, "participation")
		}

		wasGoing := p.Status == models.StatusGoing
		p.Status = status
		p.Message = message
		if err := participations.Update(ctx, p); err != nil {
			return err
		}

		if wasGoing != (status == models.StatusGoing) {
			if _, _, err := s.recount(ctx, tx, eventID); err != nil {
				return err
			}
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterRSVPUpdated)
	s.publishSnapshot(ctx, eventID)
	return updated, nil
}

// CancelRSVP deletes a participant's response and always recounts afterwards
func (s *ParticipationService) CancelRSVP(ctx context.Context, eventID uuid.UUID, participantID string) error {
	defer newrelic.FromContext(ctx).StartSegment("ledger.CancelRSVP").End()

	if participantID == "" {
		return errors.Wrap(ErrInvalidArgument, "participant is required")
	}

	err := s.mutate(ctx, "cancel_rsvp", func(tx *gorm.DB) error {
		participations := s.participations.WithTx(tx)

		if _, err := s.events.WithTx(tx).LockByID(ctx, eventID); err != nil {
			return repoError(err, "event")
		}

		p, err := participations.Get(ctx, eventID, participantID)
		if err != nil {
			return repoError(err, "participation")
		}
		if err := participations.Delete(ctx, p.ID); err != nil {
			return repoError(err, "participation")
		}

		_, _, err = s.recount(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementCounter(metrics.CounterRSVPCancelled)
	s.publishSnapshot(ctx, eventID)
	return nil
}

// GetParticipation returns the participant's response, or nil when there is none
func (s *ParticipationService) GetParticipation(ctx context.Context, eventID uuid.UUID, participantID string) (*models.Participation, error) {
	p, err := s.participations.Get(ctx, eventID, participantID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// ListByEvent lists every response to an event
func (s *ParticipationService) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participation, error) {
	return s.participations.ListByEvent(ctx, eventID)
}

// ListByParticipant lists every response a participant has made
func (s *ParticipationService) ListByParticipant(ctx context.Context, participantID string) ([]models.Participation, error) {
	return s.participations.ListByParticipant(ctx, participantID)
}

// ListByEventAndStatus lists an event's responses with the given status
func (s *ParticipationService) ListByEventAndStatus(ctx context.Context, eventID uuid.UUID, status models.ParticipationStatus) ([]models.Participation, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "participation status %q", status)
	}
	return s.participations.ListByEventAndStatus(ctx, eventID, status)
}

// CountByStatus counts an event's responses with the given status
func (s *ParticipationService) CountByStatus(ctx context.Context, eventID uuid.UUID, status models.ParticipationStatus) (int64, error) {
	if !status.Valid() {
		return 0, errors.Wrapf(ErrInvalidArgument, "participation status %q", status)
	}
	return s.participations.CountByStatus(ctx, eventID, status)
}

// Recount re-derives an event's participant counter from the ledger and returns it
func (s *ParticipationService) Recount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.events.WithTx(tx).LockByID(ctx, eventID); err != nil {
			return repoError(err, "event")
		}
		n, _, err := s.recount(ctx, tx, eventID)
		count = n
		return err
	})
	return count, err
}

// ReconcileCounters recounts every event, one transaction each, and returns how many
// counters had drifted. A failing event is logged and skipped.
func (s *ParticipationService) ReconcileCounters(ctx context.Context) (int, error) {
	ids, err := s.events.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}

		var changed bool
		err := s.tx.Do(ctx, func(tx *gorm.DB) error {
			if _, err := s.events.WithTx(tx).LockByID(ctx, id); err != nil {
				return repoError(err, "event")
			}
			var err error
			_, changed, err = s.recount(ctx, tx, id)
			return err
		})
		if err != nil {
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to reconcile participant counter")
			continue
		}
		if changed {
			repaired++
			log.Warn().Str("event_id", id.String()).Msg("participant counter had drifted and was repaired")
			s.publishSnapshot(ctx, id)
		}
	}

	s.metrics.IncrementCounterBy(metrics.CounterCountersRepaired, int64(repaired))
	log.Info().Int("events", len(ids)).Int("repaired", repaired).Msg("participant counters reconciled")
	return repaired, nil
}

// recount must run inside a transaction that already holds the event's row lock
func (s *ParticipationService) recount(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (int, bool, error) {
	going, err := s.participations.WithTx(tx).CountByStatus(ctx, eventID, models.StatusGoing)
	if err != nil {
		return 0, false, err
	}

	events := s.events.WithTx(tx)
	event, err := events.GetByID(ctx, eventID)
	if err != nil {
		return 0, false, repoError(err, "event")
	}
	if event.CurrentParticipants == int(going) {
		return int(going), false, nil
	}

	if err := events.SetCurrentParticipants(ctx, eventID, int(going)); err != nil {
		return 0, false, err
	}
	return int(going), true, nil
}

func (s *ParticipationService) mutate(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := s.tx.Do(ctx, fn)
	s.metrics.RecordTimer(metrics.TimerLedgerTx, time.Since(start))
	s.metrics.RecordResult(op, err)
	return err
}

// publishSnapshot sends the committed ledger state. Failures are logged and never surfaced.
func (s *ParticipationService) publishSnapshot(ctx context.Context, eventID uuid.UUID) {
	if s.publisher == nil {
		return
	}

	snap, err := s.participations.Snapshot(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID.String()).Msg("failed to build participation snapshot")
		return
	}

	msg := messaging.ParticipationChanged{
		EventID:     eventID,
		Going:       snap.Going,
		Maybe:       snap.Maybe,
		NotGoing:    snap.NotGoing,
		FirstRSVPAt: snap.FirstAt,
		LastRSVPAt:  snap.LastAt,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventID.String(), messaging.TypeParticipationChanged, msg); err != nil {
		log.Error().Err(err).Str("event_id", eventID.String()).Msg("failed to publish participation snapshot")
	}
}

func validateParticipant(participantID string, status models.ParticipationStatus) error {
	if participantID == "" {
		return errors.Wrap(ErrInvalidArgument, "participant is required")
	}
	if !status.Valid() {
		return errors.Wrapf(ErrInvalidArgument, "participation status %q", status)
	}
	return nil
}
