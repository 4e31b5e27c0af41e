package database

import (
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection holds the primary (read-write) handle and the read-only replica handle.
// When no replica is configured both point at the same pool.
type Connection struct {
	Write *gorm.DB
	Read  *gorm.DB
}

// Connect opens the primary and replica connections and registers the metrics hooks
func Connect(cfg config.DatabaseConfig) (*Connection, error) {
	write, err := open(cfg.DSN, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	read := write
	if cfg.ReadOnlyDSN != "" && cfg.ReadOnlyDSN != cfg.DSN {
		read, err = open(cfg.ReadOnlyDSN, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to read-only database")
		}
	}

	return &Connection{Write: write, Read: read}, nil
}

func open(dsn string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Error
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         NewLogger(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database connection")
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	RegisterDurationHooks(db)
	RegisterMetricsHooks(db)

	return db, nil
}

// Close closes both pools
func (c *Connection) Close() error {
	closeDB := func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	if c.Read != c.Write {
		if err := closeDB(c.Read); err != nil {
			log.Error().Err(err).Msg("failed to close read-only database")
		}
	}
	return closeDB(c.Write)
}

// Ping checks that the primary is reachable
func (c *Connection) Ping() error {
	sqlDB, err := c.Write.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	log.Info().Msg("running database migrations")
	if err := models.SetupModels(db); err != nil {
		return err
	}
	log.Info().Msg("database migrations completed")
	return nil
}

// zerologWriter adapts the GORM logger to zerolog
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Debug().Str("component", "gorm").Msgf(format, args...)
}

// NewLogger returns a GORM logger that writes through zerolog
func NewLogger(level logger.LogLevel) logger.Interface {
	return logger.New(zerologWriter{}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
