package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SetupModels runs migrations for every table this service reads or writes
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Event{},
		&Participation{},
		&RecurringEvent{},
		&EventAnalytics{},
		&EventComment{},
		&EventMedia{},
		&EventReminder{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
