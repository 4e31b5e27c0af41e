package repositories

import (
	"context"
	"testing"
	"time"

	"example.com/alumni/services/events/internal/database/dbtest"
	"example.com/alumni/services/events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTemplates(t *testing.T, repo *RecurringEventRepository) {
	t.Helper()
	base := time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC)

	templates := []*models.RecurringEvent{
		{Title: "Weekly Coding Meetup", Description: "Pair programming", Location: "Dhaka Hub", EventType: "MEETUP",
			IsOnline: false, OrganizerName: "Alice Rahman", CreatedByUsername: "alice", Active: true,
			RecurrenceType: models.RecurrenceWeekly, RecurrenceInterval: 1, StartDate: base, EndDate: base.Add(2 * time.Hour)},
		{Title: "Monthly Alumni Webinar", Description: "Career talks", Location: "Online", EventType: "WEBINAR",
			IsOnline: true, OrganizerName: "Bob Karim", CreatedByUsername: "bob", Active: true,
			RecurrenceType: models.RecurrenceMonthly, RecurrenceInterval: 1, StartDate: base.AddDate(0, 1, 0), EndDate: base.AddDate(0, 1, 0).Add(time.Hour)},
		{Title: "Retired coding night", Description: "No longer runs", Location: "Dhaka Hub", EventType: "MEETUP",
			OrganizerName: "Alice Rahman", CreatedByUsername: "alice", Active: true,
			RecurrenceType: models.RecurrenceWeekly, RecurrenceInterval: 2, StartDate: base, EndDate: base.Add(time.Hour)},
	}
	for _, tpl := range templates {
		require.NoError(t, repo.Create(context.Background(), tpl))
	}
	require.NoError(t, repo.SetActive(context.Background(), templates[2].ID, false))
}

func ptr[T any](v T) *T { return &v }

func TestRecurringEventRepository_Search(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRecurringEventRepository(db, db)
	ctx := context.Background()
	seedTemplates(t, repo)

	tests := []struct {
		name   string
		filter models.RecurringEventFilter
		titles []string
	}{
		{"no filters returns active only", models.RecurringEventFilter{}, []string{"Weekly Coding Meetup", "Monthly Alumni Webinar"}},
		{"title substring is case-insensitive", models.RecurringEventFilter{Title: ptr("coding")}, []string{"Weekly Coding Meetup"}},
		{"location substring", models.RecurringEventFilter{Location: ptr("dhaka")}, []string{"Weekly Coding Meetup"}},
		{"online flag", models.RecurringEventFilter{IsOnline: ptr(true)}, []string{"Monthly Alumni Webinar"}},
		{"organizer substring", models.RecurringEventFilter{Organizer: ptr("karim")}, []string{"Monthly Alumni Webinar"}},
		{"recurrence type", models.RecurringEventFilter{RecurrenceType: ptr(models.RecurrenceWeekly)}, []string{"Weekly Coding Meetup"}},
		{"conjunctive filters", models.RecurringEventFilter{EventType: ptr("MEETUP"), IsOnline: ptr(true)}, nil},
		{"start after", models.RecurringEventFilter{StartAfter: ptr(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))}, []string{"Monthly Alumni Webinar"}},
		{"description substring", models.RecurringEventFilter{Description: ptr("CAREER")}, []string{"Monthly Alumni Webinar"}},
		{"underscore is not a wildcard", models.RecurringEventFilter{Title: ptr("_")}, nil},
		{"percent is not a wildcard", models.RecurringEventFilter{Description: ptr("%")}, nil},
		{"backslash is literal", models.RecurringEventFilter{Location: ptr(`\`)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.Search(ctx, tt.filter)
			require.NoError(t, err)

			var titles []string
			for _, re := range res {
				titles = append(titles, re.Title)
			}
			assert.ElementsMatch(t, tt.titles, titles)
		})
	}
}

func TestRecurringEventRepository_Counts(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRecurringEventRepository(db, db)
	ctx := context.Background()
	seedTemplates(t, repo)

	total, err := repo.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	active, err := repo.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	mine, err := repo.ListByOrganizer(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	generating, err := repo.ListGenerating(ctx)
	require.NoError(t, err)
	assert.Len(t, generating, 2)
}
