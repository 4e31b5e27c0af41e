package repositories

import (
	"context"
	"testing"
	"time"

	"example.com/alumni/services/events/internal/database/dbtest"
	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAnalytics(t *testing.T, repo *AnalyticsRepository, organizer string, attendance, engagement float64, completed bool, start time.Time) *models.EventAnalytics {
	t.Helper()
	a := &models.EventAnalytics{
		EventID:           uuid.New(),
		OrganizerUsername: organizer,
		AttendanceRate:    &attendance,
		EngagementRate:    &engagement,
		IsCompleted:       completed,
		EventStartDate:    &start,
	}
	require.NoError(t, repo.CreateIfAbsent(context.Background(), a))
	return a
}

func TestAnalyticsRepository_CreateIfAbsentKeepsExisting(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAnalyticsRepository(db, db)
	ctx := context.Background()

	eventID := uuid.New()
	require.NoError(t, repo.CreateIfAbsent(ctx, &models.EventAnalytics{EventID: eventID, TotalInvitations: 10}))
	require.NoError(t, repo.CreateIfAbsent(ctx, &models.EventAnalytics{EventID: eventID, TotalInvitations: 0}))

	got, err := repo.GetByEventID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalInvitations)
}

func TestAnalyticsRepository_Rankings(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAnalyticsRepository(db, db)
	ctx := context.Background()
	now := time.Now()

	low := seedAnalytics(t, repo, "alice", 40, 90, true, now)
	high := seedAnalytics(t, repo, "alice", 95, 10, true, now)
	seedAnalytics(t, repo, "bob", 100, 100, false, now)

	top, err := repo.TopCompletedBy(ctx, "attendance_rate", 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, high.ID, top[0].ID)
	assert.Equal(t, low.ID, top[1].ID)

	top, err = repo.TopCompletedBy(ctx, "engagement_rate", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, low.ID, top[0].ID)

	above, err := repo.ListRateAtLeast(ctx, "attendance_rate", 90)
	require.NoError(t, err)
	require.Len(t, above, 1)
	assert.Equal(t, high.ID, above[0].ID)
}

func TestAnalyticsRepository_OrganizerSummary(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAnalyticsRepository(db, db)
	ctx := context.Background()
	now := time.Now()

	seedAnalytics(t, repo, "alice", 40, 20, true, now)
	seedAnalytics(t, repo, "alice", 80, 60, true, now)
	seedAnalytics(t, repo, "alice", 0, 0, false, now)

	summary, err := repo.OrganizerSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalEvents)
	assert.Equal(t, int64(2), summary.CompletedEvents)
	assert.InDelta(t, 60.0, summary.AverageAttendanceRate, 0.001)
	assert.InDelta(t, 40.0, summary.AverageEngagementRate, 0.001)

	empty, err := repo.OrganizerSummary(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalEvents)
	assert.Zero(t, empty.AverageAttendanceRate)
}

func TestAnalyticsRepository_DateRangesAndCompletion(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAnalyticsRepository(db, db)
	ctx := context.Background()

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	a := seedAnalytics(t, repo, "alice", 0, 0, false, jan)
	seedAnalytics(t, repo, "bob", 0, 0, false, jan)
	seedAnalytics(t, repo, "alice", 0, 0, false, mar)

	inJan, err := repo.ListByDateRange(ctx, jan.AddDate(0, 0, -1), jan.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, inJan, 2)

	aliceJan, err := repo.ListByOrganizerAndDateRange(ctx, "alice", jan.AddDate(0, 0, -1), jan.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, aliceJan, 1)

	require.NoError(t, repo.SetCompleted(ctx, a.EventID))
	completed, err := repo.ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)

	assert.True(t, errors.Is(repo.SetCompleted(ctx, uuid.New()), ErrNotFound))
}

func TestCountRepository_CountByEvent(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	eventID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.EventComment{ID: uuid.New(), EventID: eventID}).Error)
	}
	require.NoError(t, db.Create(&models.EventMedia{ID: uuid.New(), EventID: eventID}).Error)
	require.NoError(t, db.Create(&models.EventComment{ID: uuid.New(), EventID: uuid.New()}).Error)

	comments, err := NewCommentCountRepository(db).CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), comments)

	media, err := NewMediaCountRepository(db).CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), media)

	reminders, err := NewReminderCountRepository(db).CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Zero(t, reminders)
}
