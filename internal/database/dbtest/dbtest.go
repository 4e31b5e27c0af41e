// Package dbtest opens throwaway sqlite databases for tests
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a migrated sqlite database in the test's temp dir. Transactions take the
// write lock on BEGIN so concurrent writers serialize instead of failing.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_foreign_keys=on",
		filepath.Join(t.TempDir(), "events.db"))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         database.NewLogger(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database.RegisterDurationHooks(db)
	database.RegisterMetricsHooks(db)
	require.NoError(t, models.SetupModels(db))

	return db
}
