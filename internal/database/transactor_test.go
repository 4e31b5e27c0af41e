package database_test

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/database/dbtest"
	"example.com/alumni/services/events/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func retryConfig(attempts int) config.DatabaseConfig {
	return config.DatabaseConfig{RetryAttempts: attempts, RetryBackoff: time.Millisecond}
}

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	db := dbtest.New(t)
	tr := database.NewTransactor(db, retryConfig(3))

	err := tr.Do(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&models.Event{Title: "Reunion", StartDate: time.Now(), EndDate: time.Now()}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	tr := database.NewTransactor(db, retryConfig(3))
	boom := errors.New("boom")

	calls := 0
	err := tr.Do(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&models.Event{Title: "Reunion", StartDate: time.Now(), EndDate: time.Now()}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls, "non-transient errors are not retried")

	var count int64
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransactor_RetriesTransientThenSucceeds(t *testing.T) {
	db := dbtest.New(t)
	tr := database.NewTransactor(db, retryConfig(3))

	calls := 0
	err := tr.Do(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestTransactor_ReturnsUnavailableWhenExhausted(t *testing.T) {
	db := dbtest.New(t)
	tr := database.NewTransactor(db, retryConfig(2))

	calls := 0
	err := tr.Do(context.Background(), func(tx *gorm.DB) error {
		calls++
		return driver.ErrBadConn
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrUnavailable))
	assert.Equal(t, 2, calls)
}

func TestTransactor_StopsOnCancelledContext(t *testing.T) {
	db := dbtest.New(t)
	tr := database.NewTransactor(db, config.DatabaseConfig{RetryAttempts: 5, RetryBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := tr.Do(ctx, func(tx *gorm.DB) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40P01"}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, database.IsTransient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, database.IsTransient(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, database.IsTransient(&pgconn.PgError{Code: "08006"}))
	assert.True(t, database.IsTransient(errors.Wrap(driver.ErrBadConn, "query")))
	assert.True(t, database.IsTransient(errors.New("database is locked")))
	assert.False(t, database.IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, database.IsTransient(gorm.ErrRecordNotFound))
	assert.False(t, database.IsTransient(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, database.IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, database.IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db := dbtest.New(t)
	ev := &models.Event{Title: "Gala", StartDate: time.Now(), EndDate: time.Now()}
	require.NoError(t, db.Create(ev).Error)

	p := &models.Participation{EventID: ev.ID, ParticipantID: "alice", Status: models.StatusGoing}
	require.NoError(t, db.Create(p).Error)

	err := db.Create(&models.Participation{EventID: ev.ID, ParticipantID: "alice", Status: models.StatusMaybe}).Error
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}
