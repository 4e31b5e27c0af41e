package database

import (
	"context"
	"database/sql/driver"
	"strings"
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrUnavailable is returned once a transaction has failed transiently on every attempt
var ErrUnavailable = errors.New("database unavailable")

// Transactor runs units of work in a single database transaction, retrying the
// whole unit when the failure is transient (serialization failure, deadlock, lost connection).
type Transactor struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
}

// NewTransactor creates a transactor over db
func NewTransactor(db *gorm.DB, cfg config.DatabaseConfig) *Transactor {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Transactor{db: db, attempts: attempts, backoff: cfg.RetryBackoff}
}

// Do runs fn inside a transaction. fn must not retain tx after it returns and must be safe to re-run.
func (t *Transactor) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		err = t.db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsTransient(err) {
			return err
		}

		metrics.Default().IncrementCounter(metrics.CounterTxRetries)
		log.Warn().Err(err).Int("attempt", attempt).Msg("transient database error, retrying transaction")

		if attempt == t.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "transaction retry aborted")
		case <-time.After(time.Duration(attempt) * t.backoff):
		}
	}

	return errors.Wrapf(ErrUnavailable, "after %d attempts: %v", t.attempts, err)
}

// IsTransient reports whether err is worth retrying the whole transaction for
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}

	// sqlite reports lock contention as a plain error string
	return strings.Contains(err.Error(), "database is locked")
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
