package services

import (
	"context"
	"sync/atomic"
	"time"

	"example.com/alumni/services/events/internal/cache"
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

const (
	unknownEventTitle = "Unknown Event"
	unknownOrganizer  = "Unknown"

	recalculateBatchSize = 200
)

// CountProvider counts an event's rows in a read-only engagement source
type CountProvider interface {
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
}

// Cache is the read-through cache in front of analytics rows
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// Indexer projects analytics rows into a search index
type Indexer interface {
	IndexAnalytics(ctx context.Context, a *models.EventAnalytics) error
}

// EngagementSources groups the count providers feeding SyncEngagementCounts
type EngagementSources struct {
	Comments  CountProvider
	Media     CountProvider
	Reminders CountProvider
}

// AnalyticsInput is the full set of reported counters for one event
type AnalyticsInput struct {
	EventID                  uuid.UUID  `json:"event_id" binding:"required"`
	EventTitle               string     `json:"event_title"`
	OrganizerUsername        string     `json:"organizer_username"`
	TotalInvitations         int        `json:"total_invitations"`
	ConfirmedAttendees       int        `json:"confirmed_attendees"`
	MaybeAttendees           int        `json:"maybe_attendees"`
	DeclinedAttendees        int        `json:"declined_attendees"`
	PendingResponses         int        `json:"pending_responses"`
	TotalComments            int        `json:"total_comments"`
	TotalMediaUploads        int        `json:"total_media_uploads"`
	TotalReminders           int        `json:"total_reminders"`
	FirstRSVPTime            *time.Time `json:"first_rsvp_time"`
	LastRSVPTime             *time.Time `json:"last_rsvp_time"`
	AverageResponseTimeHours int        `json:"average_response_time_hours"`
	AttendanceRate           *float64   `json:"attendance_rate"`
	EngagementRate           *float64   `json:"engagement_rate"`
	IsCompleted              bool       `json:"is_completed"`
	EventStartDate           *time.Time `json:"event_start_date"`
	EventEndDate             *time.Time `json:"event_end_date"`
}

// AnalyticsService is the analytics aggregator. It is the only writer of event_analytics
// and derives rates from reported counters, never from the participation ledger.
type AnalyticsService struct {
	tx        *database.Transactor
	analytics *repositories.AnalyticsRepository
	events    *repositories.EventRepository
	sources   EngagementSources
	cache     Cache
	indexer   Indexer
	metrics   *metrics.Metrics

	// bumped before every invalidation; a read that saw a bump must not repopulate the cache
	writes atomic.Uint64
}

// NewAnalyticsService creates a new analytics service. cache and indexer may be nil.
func NewAnalyticsService(
	tx *database.Transactor,
	analytics *repositories.AnalyticsRepository,
	events *repositories.EventRepository,
	sources EngagementSources,
	c Cache,
	indexer Indexer,
	m *metrics.Metrics,
) *AnalyticsService {
	if m == nil {
		m = metrics.Default()
	}
	return &AnalyticsService{
		tx:        tx,
		analytics: analytics,
		events:    events,
		sources:   sources,
		cache:     c,
		indexer:   indexer,
		metrics:   m,
	}
}

// TryGetAnalytics returns the event's analytics row without creating one.
// Writes from other processes are only bounded by the cache TTL.
func (s *AnalyticsService) TryGetAnalytics(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, error) {
	defer newrelic.FromContext(ctx).StartSegment("analytics.TryGet").End()

	seen := s.writes.Load()
	if a, ok := s.cached(ctx, eventID); ok {
		return a, nil
	}

	a, err := s.analytics.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, repoError(err, "analytics")
	}
	if s.writes.Load() == seen {
		s.remember(ctx, a)
	}
	return a, nil
}

// GetOrInitAnalytics returns the event's analytics row, persisting a zeroed one first when absent
func (s *AnalyticsService) GetOrInitAnalytics(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, error) {
	defer newrelic.FromContext(ctx).StartSegment("analytics.GetOrInit").End()

	a, err := s.TryGetAnalytics(ctx, eventID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	blank := s.zeroed(ctx, eventID)
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		repo := s.analytics.WithTx(tx)
		if err := repo.CreateIfAbsent(ctx, blank); err != nil {
			return repoError(err, "analytics")
		}
		var err error
		a, err = repo.GetByEventID(ctx, eventID)
		return repoError(err, "analytics")
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("event_id", eventID.String()).Msg("analytics initialised")
	s.afterWrite(ctx, a)
	return a, nil
}

// Upsert writes every reported counter and date, filling in absent or zero rates
func (s *AnalyticsService) Upsert(ctx context.Context, in AnalyticsInput) (*models.EventAnalytics, error) {
	defer newrelic.FromContext(ctx).StartSegment("analytics.Upsert").End()

	if in.EventID == uuid.Nil {
		return nil, errors.Wrap(ErrInvalidArgument, "event id is required")
	}
	if err := validateCounters(in); err != nil {
		return nil, err
	}

	a, err := s.write(ctx, in.EventID, func(a *models.EventAnalytics) error {
		applyInput(a, in)
		fillRates(a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", in.EventID.String()).
		Float64("attendance_rate", a.AttendanceRateValue()).
		Float64("engagement_rate", a.EngagementRateValue()).
		Msg("analytics upserted")
	return a, nil
}

// UpdateAttendanceTracking records invitation and attendance totals and recomputes the attendance rate
func (s *AnalyticsService) UpdateAttendanceTracking(ctx context.Context, eventID uuid.UUID, totalInvited, actualAttended int) (*models.EventAnalytics, error) {
	defer newrelic.FromContext(ctx).StartSegment("analytics.UpdateAttendanceTracking").End()

	if totalInvited <= 0 {
		return nil, errors.Wrapf(ErrInvalidCounters, "total invited must be positive, got %d", totalInvited)
	}
	if actualAttended < 0 {
		return nil, errors.Wrapf(ErrInvalidCounters, "actual attended must not be negative, got %d", actualAttended)
	}

	return s.update(ctx, eventID, func(a *models.EventAnalytics) error {
		a.TotalInvitations = totalInvited
		a.ConfirmedAttendees = actualAttended
		a.AttendanceRate = percent(actualAttended, totalInvited)
		return nil
	})
}

// MarkCompleted sets the completion flag of an existing row
func (s *AnalyticsService) MarkCompleted(ctx context.Context, eventID uuid.UUID) error {
	if err := s.analytics.SetCompleted(ctx, eventID); err != nil {
		return repoError(err, "analytics")
	}

	s.invalidate(ctx, eventID)
	if a, err := s.analytics.GetByEventID(ctx, eventID); err == nil {
		s.index(ctx, a)
	}
	log.Info().Str("event_id", eventID.String()).Msg("event marked as completed")
	return nil
}

// RecalculateAll re-derives both rates of every row from its stored counters and returns how many rows were visited
func (s *AnalyticsService) RecalculateAll(ctx context.Context) (int, error) {
	defer newrelic.FromContext(ctx).StartSegment("analytics.RecalculateAll").End()

	start := time.Now()
	visited := 0
	err := s.analytics.FindInBatches(ctx, recalculateBatchSize, func(batch []models.EventAnalytics) error {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}

			a := &batch[i]
			deriveRates(a)
			if err := s.analytics.UpdateRates(ctx, a.ID, a.AttendanceRate, a.EngagementRate); err != nil {
				return err
			}
			s.invalidate(ctx, a.EventID)
			s.index(ctx, a)
			visited++
		}
		return nil
	})
	s.metrics.RecordTimer(metrics.TimerRecalculation, time.Since(start))
	s.metrics.IncrementCounterBy(metrics.CounterAnalyticsRecalc, int64(visited))
	if err != nil {
		return visited, errors.Wrap(err, "failed to recalculate analytics")
	}

	log.Info().Int("rows", visited).Dur("took", time.Since(start)).Msg("analytics recalculated")
	return visited, nil
}

// ApplyParticipationSnapshot stores the response counts reported by the participation ledger
func (s *AnalyticsService) ApplyParticipationSnapshot(ctx context.Context, msg *messaging.ParticipationChanged) error {
	if msg == nil || msg.EventID == uuid.Nil {
		return errors.Wrap(ErrInvalidArgument, "participation snapshot without event id")
	}
	if msg.Going < 0 || msg.Maybe < 0 || msg.NotGoing < 0 {
		return errors.Wrap(ErrInvalidCounters, "participation snapshot with negative counts")
	}

	_, err := s.write(ctx, msg.EventID, func(a *models.EventAnalytics) error {
		a.ConfirmedAttendees = int(msg.Going)
		a.MaybeAttendees = int(msg.Maybe)
		a.DeclinedAttendees = int(msg.NotGoing)
		a.PendingResponses = pending(a.TotalInvitations, msg.Going+msg.Maybe+msg.NotGoing)
		a.FirstRSVPTime = msg.FirstRSVPAt
		a.LastRSVPTime = msg.LastRSVPAt
		deriveRates(a)
		return nil
	})
	return err
}

// ApplyEngagementCounts stores the engagement totals present in msg
func (s *AnalyticsService) ApplyEngagementCounts(ctx context.Context, msg *messaging.EngagementCounts) error {
	if msg == nil || msg.EventID == uuid.Nil {
		return errors.Wrap(ErrInvalidArgument, "engagement counts without event id")
	}
	for _, n := range []*int64{msg.Comments, msg.Media, msg.Reminders} {
		if n != nil && *n < 0 {
			return errors.Wrap(ErrInvalidCounters, "engagement counts must not be negative")
		}
	}

	_, err := s.write(ctx, msg.EventID, func(a *models.EventAnalytics) error {
		if msg.Comments != nil {
			a.TotalComments = int(*msg.Comments)
		}
		if msg.Media != nil {
			a.TotalMediaUploads = int(*msg.Media)
		}
		if msg.Reminders != nil {
			a.TotalReminders = int(*msg.Reminders)
		}
		deriveRates(a)
		return nil
	})
	return err
}

// SyncEngagementCounts pulls comment, media and reminder totals from the count providers
func (s *AnalyticsService) SyncEngagementCounts(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, error) {
	counts := messaging.EngagementCounts{EventID: eventID}
	for _, src := range []struct {
		provider CountProvider
		dst      **int64
		name     string
	}{
		{s.sources.Comments, &counts.Comments, "comments"},
		{s.sources.Media, &counts.Media, "media"},
		{s.sources.Reminders, &counts.Reminders, "reminders"},
	} {
		if src.provider == nil {
			continue
		}
		n, err := src.provider.CountByEvent(ctx, eventID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to count %s", src.name)
		}
		*src.dst = &n
	}

	if err := s.ApplyEngagementCounts(ctx, &counts); err != nil {
		return nil, err
	}
	return s.TryGetAnalytics(ctx, eventID)
}

// TopByAttendance ranks completed events by attendance rate. limit <= 0 returns every row.
func (s *AnalyticsService) TopByAttendance(ctx context.Context, limit int) ([]models.EventAnalytics, error) {
	return s.analytics.TopCompletedBy(ctx, "attendance_rate", limit)
}

// TopByEngagement ranks completed events by engagement rate. limit <= 0 returns every row.
func (s *AnalyticsService) TopByEngagement(ctx context.Context, limit int) ([]models.EventAnalytics, error) {
	return s.analytics.TopCompletedBy(ctx, "engagement_rate", limit)
}

// ListWithAttendanceAtLeast lists completed events whose attendance rate reaches threshold
func (s *AnalyticsService) ListWithAttendanceAtLeast(ctx context.Context, threshold float64) ([]models.EventAnalytics, error) {
	return s.analytics.ListRateAtLeast(ctx, "attendance_rate", threshold)
}

// ListWithEngagementAtLeast lists completed events whose engagement rate reaches threshold
func (s *AnalyticsService) ListWithEngagementAtLeast(ctx context.Context, threshold float64) ([]models.EventAnalytics, error) {
	return s.analytics.ListRateAtLeast(ctx, "engagement_rate", threshold)
}

// ListByOrganizer lists an organizer's analytics rows
func (s *AnalyticsService) ListByOrganizer(ctx context.Context, username string) ([]models.EventAnalytics, error) {
	return s.analytics.ListByOrganizer(ctx, username)
}

// ListCompleted lists completed events
func (s *AnalyticsService) ListCompleted(ctx context.Context) ([]models.EventAnalytics, error) {
	return s.analytics.ListCompleted(ctx)
}

// ListByDateRange lists rows whose event starts within [from, to]
func (s *AnalyticsService) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.EventAnalytics, error) {
	if to.Before(from) {
		return nil, errors.Wrap(ErrInvalidArgument, "date range ends before it starts")
	}
	return s.analytics.ListByDateRange(ctx, from, to)
}

// ListByOrganizerAndDateRange lists an organizer's rows whose event starts within [from, to]
func (s *AnalyticsService) ListByOrganizerAndDateRange(ctx context.Context, username string, from, to time.Time) ([]models.EventAnalytics, error) {
	if to.Before(from) {
		return nil, errors.Wrap(ErrInvalidArgument, "date range ends before it starts")
	}
	return s.analytics.ListByOrganizerAndDateRange(ctx, username, from, to)
}

// OrganizerSummary rolls up an organizer's events
func (s *AnalyticsService) OrganizerSummary(ctx context.Context, username string) (*models.OrganizerSummary, error) {
	return s.analytics.OrganizerSummary(ctx, username)
}

// write locks the event's row, creating a zeroed one if needed, and saves whatever fn leaves in it
func (s *AnalyticsService) write(ctx context.Context, eventID uuid.UUID, fn func(a *models.EventAnalytics) error) (*models.EventAnalytics, error) {
	blank := s.zeroed(ctx, eventID)

	var saved *models.EventAnalytics
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		repo := s.analytics.WithTx(tx)
		if err := repo.CreateIfAbsent(ctx, blank); err != nil {
			return repoError(err, "analytics")
		}
		a, err := repo.GetByEventIDForUpdate(ctx, eventID)
		if err != nil {
			return repoError(err, "analytics")
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		saved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, saved)
	return saved, nil
}

// update is write without the implicit create
func (s *AnalyticsService) update(ctx context.Context, eventID uuid.UUID, fn func(a *models.EventAnalytics) error) (*models.EventAnalytics, error) {
	var saved *models.EventAnalytics
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		repo := s.analytics.WithTx(tx)
		a, err := repo.GetByEventIDForUpdate(ctx, eventID)
		if err != nil {
			return repoError(err, "analytics")
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		saved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, saved)
	return saved, nil
}

// zeroed builds an empty row, borrowing title, organizer and dates from the event when it exists
func (s *AnalyticsService) zeroed(ctx context.Context, eventID uuid.UUID) *models.EventAnalytics {
	zero := 0.0
	a := &models.EventAnalytics{
		EventID:           eventID,
		EventTitle:        unknownEventTitle,
		OrganizerUsername: unknownOrganizer,
		AttendanceRate:    &zero,
		EngagementRate:    &zero,
	}

	if s.events == nil {
		return a
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Err(err).Str("event_id", eventID.String()).Msg("failed to load event for analytics")
		}
		return a
	}

	a.EventTitle = event.Title
	if event.CreatedByUsername != "" {
		a.OrganizerUsername = event.CreatedByUsername
	}
	start, end := event.StartDate, event.EndDate
	a.EventStartDate = &start
	a.EventEndDate = &end
	return a
}

func (s *AnalyticsService) cached(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, bool) {
	if s.cache == nil {
		return nil, false
	}

	var a models.EventAnalytics
	err := s.cache.Get(ctx, cache.AnalyticsKey(eventID), &a)
	switch {
	case err == nil:
		s.metrics.IncrementCounter(metrics.CounterCacheHits)
		return &a, true
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.IncrementCounter(metrics.CounterCacheMisses)
	case errors.Is(err, cache.ErrDisabled):
	default:
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("analytics cache read failed")
	}
	return nil, false
}

func (s *AnalyticsService) remember(ctx context.Context, a *models.EventAnalytics) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.AnalyticsKey(a.EventID), a); err != nil {
		log.Warn().Err(err).Str("event_id", a.EventID.String()).Msg("analytics cache write failed")
	}
}

func (s *AnalyticsService) invalidate(ctx context.Context, eventID uuid.UUID) {
	s.writes.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.AnalyticsKey(eventID)); err != nil {
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("analytics cache invalidation failed")
	}
}

func (s *AnalyticsService) index(ctx context.Context, a *models.EventAnalytics) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexAnalytics(ctx, a); err != nil {
		log.Error().Err(err).Str("event_id", a.EventID.String()).Msg("failed to index analytics")
	}
}

func (s *AnalyticsService) afterWrite(ctx context.Context, a *models.EventAnalytics) {
	s.invalidate(ctx, a.EventID)
	s.index(ctx, a)
}

func applyInput(a *models.EventAnalytics, in AnalyticsInput) {
	if in.EventTitle != "" {
		a.EventTitle = in.EventTitle
	}
	if in.OrganizerUsername != "" {
		a.OrganizerUsername = in.OrganizerUsername
	}
	a.TotalInvitations = in.TotalInvitations
	a.ConfirmedAttendees = in.ConfirmedAttendees
	a.MaybeAttendees = in.MaybeAttendees
	a.DeclinedAttendees = in.DeclinedAttendees
	a.PendingResponses = in.PendingResponses
	a.TotalComments = in.TotalComments
	a.TotalMediaUploads = in.TotalMediaUploads
	a.TotalReminders = in.TotalReminders
	a.FirstRSVPTime = in.FirstRSVPTime
	a.LastRSVPTime = in.LastRSVPTime
	a.AverageResponseTimeHours = in.AverageResponseTimeHours
	a.AttendanceRate = in.AttendanceRate
	a.EngagementRate = in.EngagementRate
	a.IsCompleted = in.IsCompleted
	a.EventStartDate = in.EventStartDate
	a.EventEndDate = in.EventEndDate
}

func validateCounters(in AnalyticsInput) error {
	for _, n := range []int{
		in.TotalInvitations, in.ConfirmedAttendees, in.MaybeAttendees, in.DeclinedAttendees,
		in.PendingResponses, in.TotalComments, in.TotalMediaUploads, in.TotalReminders,
		in.AverageResponseTimeHours,
	} {
		if n < 0 {
			return errors.Wrap(ErrInvalidCounters, "counters must not be negative")
		}
	}
	return nil
}

// fillRates computes a rate only when the caller left it absent or zero
func fillRates(a *models.EventAnalytics) {
	if isZeroRate(a.AttendanceRate) && a.TotalInvitations > 0 {
		a.AttendanceRate = percent(a.ConfirmedAttendees, a.TotalInvitations)
	}
	participants := a.ConfirmedAttendees + a.MaybeAttendees
	if isZeroRate(a.EngagementRate) && participants > 0 {
		a.EngagementRate = percent(a.TotalComments+a.TotalMediaUploads, participants)
	}
}

// deriveRates recomputes every rate whose denominator is positive and keeps the rest
func deriveRates(a *models.EventAnalytics) {
	if a.TotalInvitations > 0 {
		a.AttendanceRate = percent(a.ConfirmedAttendees, a.TotalInvitations)
	}
	if participants := a.ConfirmedAttendees + a.MaybeAttendees; participants > 0 {
		a.EngagementRate = percent(a.TotalComments+a.TotalMediaUploads, participants)
	}
}

func isZeroRate(r *float64) bool {
	return r == nil || *r == 0
}

func percent(num, den int) *float64 {
	v := float64(num) * 100 / float64(den)
	return &v
}

func pending(invited int, responded int64) int {
	if p := int64(invited) - responded; p > 0 {
		return int(p)
	}
	return 0
}
