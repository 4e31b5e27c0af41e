package services

import (
	"context"
	"time"

	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/repositories"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RecurringEventService manages recurring event templates and materializes their occurrences.
// Templates may only be changed by the user who created them.
type RecurringEventService struct {
	templates *repositories.RecurringEventRepository
	events    *repositories.EventRepository
	expander  *Expander
	metrics   *metrics.Metrics
}

// NewRecurringEventService creates a new recurring event service
func NewRecurringEventService(
	templates *repositories.RecurringEventRepository,
	events *repositories.EventRepository,
	expander *Expander,
	m *metrics.Metrics,
) *RecurringEventService {
	if m == nil {
		m = metrics.Default()
	}
	return &RecurringEventService{templates: templates, events: events, expander: expander, metrics: m}
}

// Create stores a new template owned by caller
func (s *RecurringEventService) Create(ctx context.Context, caller string, tpl *models.RecurringEvent) (*models.RecurringEvent, error) {
	if caller == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "caller identity is required")
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	active, generate := tpl.Active, tpl.GenerateInstances
	tpl.ID = uuid.Nil
	tpl.CreatedByUsername = caller
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, repoError(err, "recurring event")
	}

	// zero-valued booleans are replaced by column defaults on insert
	if !active || !generate {
		tpl.Active, tpl.GenerateInstances = active, generate
		if err := s.templates.Save(ctx, tpl); err != nil {
			return nil, repoError(err, "recurring event")
		}
	}

	log.Info().Str("recurring_event_id", tpl.ID.String()).Str("owner", caller).Msg("recurring event created")
	return s.Get(ctx, tpl.ID)
}

// Update overwrites a template's fields. Ownership, activity and identity are kept.
func (s *RecurringEventService) Update(ctx context.Context, caller string, id uuid.UUID, changes *models.RecurringEvent) (*models.RecurringEvent, error) {
	existing, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(changes); err != nil {
		return nil, err
	}

	changes.ID = existing.ID
	changes.CreatedAt = existing.CreatedAt
	changes.CreatedByUsername = existing.CreatedByUsername
	changes.Active = existing.Active
	if err := s.templates.Save(ctx, changes); err != nil {
		return nil, repoError(err, "recurring event")
	}
	return s.Get(ctx, id)
}

// Delete removes a template. Occurrences already materialized stay.
func (s *RecurringEventService) Delete(ctx context.Context, caller string, id uuid.UUID) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	return repoError(s.templates.Delete(ctx, id), "recurring event")
}

// Activate turns instance generation for a template back on
func (s *RecurringEventService) Activate(ctx context.Context, caller string, id uuid.UUID) (*models.RecurringEvent, error) {
	return s.setActive(ctx, caller, id, true)
}

// Deactivate stops a template from generating occurrences and from appearing in search
func (s *RecurringEventService) Deactivate(ctx context.Context, caller string, id uuid.UUID) (*models.RecurringEvent, error) {
	return s.setActive(ctx, caller, id, false)
}

func (s *RecurringEventService) setActive(ctx context.Context, caller string, id uuid.UUID, active bool) (*models.RecurringEvent, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := s.templates.SetActive(ctx, id, active); err != nil {
		return nil, repoError(err, "recurring event")
	}
	return s.Get(ctx, id)
}

// Get gets a template by ID
func (s *RecurringEventService) Get(ctx context.Context, id uuid.UUID) (*models.RecurringEvent, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "recurring event")
	}
	return tpl, nil
}

// ListByOrganizer lists the templates owned by username
func (s *RecurringEventService) ListByOrganizer(ctx context.Context, username string) ([]models.RecurringEvent, error) {
	return s.templates.ListByOrganizer(ctx, username)
}

// ListActive lists active templates
func (s *RecurringEventService) ListActive(ctx context.Context) ([]models.RecurringEvent, error) {
	return s.templates.ListActive(ctx)
}

// Search returns the active templates matching every supplied filter
func (s *RecurringEventService) Search(ctx context.Context, filter models.RecurringEventFilter) ([]models.RecurringEvent, error) {
	if filter.RecurrenceType != nil && !filter.RecurrenceType.Valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "recurrence type %q", *filter.RecurrenceType)
	}
	return s.templates.Search(ctx, filter)
}

// Count counts every template
func (s *RecurringEventService) Count(ctx context.Context) (int64, error) {
	return s.templates.Count(ctx, false)
}

// CountActive counts active templates
func (s *RecurringEventService) CountActive(ctx context.Context) (int64, error) {
	return s.templates.Count(ctx, true)
}

// Occurrences previews a template's expansion without writing anything
func (s *RecurringEventService) Occurrences(ctx context.Context, id uuid.UUID, asOf time.Time) ([]Occurrence, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.expander.Expand(tpl, asOf)
}

// GenerateInstances expands every active, generating template and stores the occurrences
// as events. Re-running it never duplicates an occurrence. It returns how many events were created.
func (s *RecurringEventService) GenerateInstances(ctx context.Context, asOf time.Time) (int64, error) {
	defer newrelic.FromContext(ctx).StartSegment("recurrence.GenerateInstances").End()
	start := time.Now()

	templates, err := s.templates.ListGenerating(ctx)
	if err != nil {
		return 0, err
	}

	var created int64
	for i := range templates {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		tpl := &templates[i]
		occurrences, err := s.expander.Expand(tpl, asOf)
		if err != nil {
			log.Error().Err(err).Str("recurring_event_id", tpl.ID.String()).Msg("skipping template with invalid rule")
			continue
		}

		events := make([]*models.Event, 0, len(occurrences))
		for _, o := range occurrences {
			events = append(events, tpl.Occurrence(o.Start))
		}

		n, err := s.events.CreateOccurrences(ctx, events)
		if err != nil {
			return created, errors.Wrapf(err, "recurring event %s", tpl.ID)
		}
		created += n
	}

	s.metrics.IncrementCounterBy(metrics.CounterOccurrencesCreated, created)
	s.metrics.RecordTimer(metrics.TimerExpansion, time.Since(start))
	log.Info().Int("templates", len(templates)).Int64("created", created).Msg("recurring event instances generated")
	return created, nil
}

// owned loads a template and checks that caller created it
func (s *RecurringEventService) owned(ctx context.Context, caller string, id uuid.UUID) (*models.RecurringEvent, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == "" || tpl.CreatedByUsername != caller {
		return nil, errors.Wrapf(ErrForbidden, "recurring event %s is not owned by %q", id, caller)
	}
	return tpl, nil
}

func validateTemplate(tpl *models.RecurringEvent) error {
	if tpl.Title == "" {
		return errors.Wrap(ErrInvalidArgument, "title is required")
	}
	if tpl.StartDate.IsZero() || tpl.EndDate.IsZero() {
		return errors.Wrap(ErrInvalidArgument, "start and end dates are required")
	}
	if tpl.StartDate.After(tpl.EndDate) {
		return errors.Wrap(ErrInvalidArgument, "start date cannot be after end date")
	}
	if tpl.Privacy == "" {
		tpl.Privacy = models.PrivacyPublic
	}
	if !tpl.Privacy.Valid() {
		return errors.Wrapf(ErrInvalidArgument, "privacy %q", tpl.Privacy)
	}
	return ValidateRule(tpl)
}
