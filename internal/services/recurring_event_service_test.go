package services

import (
	"context"
	"testing"
	"time"

	"example.com/alumni/services/events/internal/database/dbtest"
	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecurringFixture(t *testing.T) (*RecurringEventService, *repositories.EventRepository) {
	t.Helper()
	db := dbtest.New(t)
	events := repositories.NewEventRepository(db, db)
	svc := NewRecurringEventService(
		repositories.NewRecurringEventRepository(db, db),
		events,
		&Expander{Horizon: 30 * 24 * time.Hour, MaxPerCall: 100},
		metrics.NewMetrics(),
	)
	return svc, events
}

func weeklyTemplate() *models.RecurringEvent {
	return &models.RecurringEvent{
		Title:              "Weekly mentoring",
		Location:           "Library",
		StartDate:          monday,
		EndDate:            monday.Add(time.Hour),
		Active:             true,
		GenerateInstances:  true,
		RecurrenceType:     models.RecurrenceWeekly,
		RecurrenceInterval: 1,
		RecurrenceDays:     models.DaySet{time.Monday, time.Thursday},
		MaxOccurrences:     6,
	}
}

func TestRecurringEventService_CreateAndOwnership(t *testing.T) {
	svc, _ := newRecurringFixture(t)
	ctx := context.Background()

	tpl, err := svc.Create(ctx, "alice", weeklyTemplate())
	require.NoError(t, err)
	assert.Equal(t, "alice", tpl.CreatedByUsername)
	assert.Equal(t, models.PrivacyPublic, tpl.Privacy)
	assert.Equal(t, models.DaySet{time.Monday, time.Thursday}, tpl.RecurrenceDays)

	changes := weeklyTemplate()
	changes.Title = "Hijacked"
	_, err = svc.Update(ctx, "mallory", tpl.ID, changes)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.True(t, errors.Is(svc.Delete(ctx, "mallory", tpl.ID), ErrForbidden))
	_, err = svc.Deactivate(ctx, "mallory", tpl.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	changes.Title = "Weekly mentoring (new room)"
	updated, err := svc.Update(ctx, "alice", tpl.ID, changes)
	require.NoError(t, err)
	assert.Equal(t, "Weekly mentoring (new room)", updated.Title)
	assert.Equal(t, "alice", updated.CreatedByUsername)

	deactivated, err := svc.Deactivate(ctx, "alice", tpl.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	activated, err := svc.Activate(ctx, "alice", tpl.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)

	require.NoError(t, svc.Delete(ctx, "alice", tpl.ID))
	_, err = svc.Get(ctx, tpl.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, "alice", uuid.New()), ErrNotFound))
}

func TestRecurringEventService_CreateKeepsFalseFlags(t *testing.T) {
	svc, _ := newRecurringFixture(t)
	ctx := context.Background()

	in := weeklyTemplate()
	in.Active = false
	in.GenerateInstances = false
	tpl, err := svc.Create(ctx, "alice", in)
	require.NoError(t, err)
	assert.False(t, tpl.Active)
	assert.False(t, tpl.GenerateInstances)

	active, err := svc.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)
	total, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRecurringEventService_Validation(t *testing.T) {
	svc, _ := newRecurringFixture(t)
	ctx := context.Background()

	tpl := weeklyTemplate()
	tpl.RecurrenceInterval = 0
	_, err := svc.Create(ctx, "alice", tpl)
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))

	tpl = weeklyTemplate()
	tpl.EndDate = tpl.StartDate.Add(-time.Hour)
	_, err = svc.Create(ctx, "alice", tpl)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	tpl = weeklyTemplate()
	tpl.Privacy = "SECRET"
	_, err = svc.Create(ctx, "alice", tpl)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = svc.Create(ctx, "", weeklyTemplate())
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	bad := models.RecurrenceType("HOURLY")
	_, err = svc.Search(ctx, models.RecurringEventFilter{RecurrenceType: &bad})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRecurringEventService_GenerateInstancesIsIdempotent(t *testing.T) {
	svc, events := newRecurringFixture(t)
	ctx := context.Background()

	tpl, err := svc.Create(ctx, "alice", weeklyTemplate())
	require.NoError(t, err)

	paused := weeklyTemplate()
	paused.GenerateInstances = false
	_, err = svc.Create(ctx, "bob", paused)
	require.NoError(t, err)

	created, err := svc.GenerateInstances(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, int64(6), created)

	created, err = svc.GenerateInstances(ctx, monday)
	require.NoError(t, err)
	assert.Zero(t, created)

	occurrences, err := events.ListOccurrences(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, occurrences, 6)
	for _, ev := range occurrences {
		assert.Contains(t, []time.Weekday{time.Monday, time.Thursday}, ev.StartDate.Weekday())
		assert.Equal(t, time.Hour, ev.EndDate.Sub(ev.StartDate))
		assert.Equal(t, "Weekly mentoring", ev.Title)
		assert.True(t, ev.Active)
		assert.Zero(t, ev.CurrentParticipants)
	}

	preview, err := svc.Occurrences(ctx, tpl.ID, monday)
	require.NoError(t, err)
	assert.Len(t, preview, 6)
}

func TestRecurringEventService_SearchAndLists(t *testing.T) {
	svc, _ := newRecurringFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", weeklyTemplate())
	require.NoError(t, err)

	online := weeklyTemplate()
	online.Title = "Online career clinic"
	online.IsOnline = true
	online.RecurrenceType = models.RecurrenceMonthly
	online.RecurrenceDays = nil
	_, err = svc.Create(ctx, "bob", online)
	require.NoError(t, err)

	res, err := svc.Search(ctx, models.RecurringEventFilter{})
	require.NoError(t, err)
	assert.Len(t, res, 2)

	isOnline := true
	res, err = svc.Search(ctx, models.RecurringEventFilter{IsOnline: &isOnline})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Online career clinic", res[0].Title)

	mine, err := svc.ListByOrganizer(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
