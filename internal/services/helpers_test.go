package services

import (
	"context"
	"testing"
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/database/dbtest"
	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockPublisher records published messages
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, sessionID, messageType string, body interface{}) error {
	args := m.Called(ctx, sessionID, messageType, body)
	return args.Error(0)
}

type ledgerFixture struct {
	db        *gorm.DB
	events    *repositories.EventRepository
	service   *ParticipationService
	publisher *MockPublisher
	metrics   *metrics.Metrics
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := dbtest.New(t)

	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	m := metrics.NewMetrics()
	events := repositories.NewEventRepository(db, db)
	tx := database.NewTransactor(db, config.DatabaseConfig{RetryAttempts: 5, RetryBackoff: 5 * time.Millisecond})

	return &ledgerFixture{
		db:        db,
		events:    events,
		publisher: publisher,
		metrics:   m,
		service:   NewParticipationService(tx, events, repositories.NewParticipationRepository(db, db), publisher, m),
	}
}

func (f *ledgerFixture) createEvent(t *testing.T, active bool) *models.Event {
	t.Helper()
	start := time.Now().Add(24 * time.Hour)
	ev := &models.Event{
		Title:             "Alumni reunion",
		StartDate:         start,
		EndDate:           start.Add(3 * time.Hour),
		Active:            active,
		Privacy:           models.PrivacyPublic,
		CreatedByUsername: "organizer",
	}
	_, err := f.events.Save(context.Background(), ev)
	require.NoError(t, err)
	return ev
}

func (f *ledgerFixture) counter(t *testing.T, ev *models.Event) int {
	t.Helper()
	got, err := f.events.GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	return got.CurrentParticipants
}

func (f *ledgerFixture) goingCount(t *testing.T, ev *models.Event) int {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Participation{}).
		Where("event_id = ? AND status = ?", ev.ID, models.StatusGoing).
		Count(&n).Error)
	return int(n)
}
