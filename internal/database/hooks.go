package database

import (
	"time"

	"example.com/alumni/services/events/internal/metrics"

	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

// RegisterMetricsHooks records every GORM operation in the process-wide metrics collector
func RegisterMetricsHooks(db *gorm.DB) {
	record := func(queryType string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			metrics.Default().RecordDatabaseQuery(queryType, db.Error == nil || db.Error == gorm.ErrRecordNotFound, getDuration(db))
		}
	}

	cb := db.Callback()
	_ = cb.Create().After("gorm:create").Register("metrics:create", record(metrics.DBQueryTypeInsert))
	_ = cb.Query().After("gorm:query").Register("metrics:query", record(metrics.DBQueryTypeSelect))
	_ = cb.Update().After("gorm:update").Register("metrics:update", record(metrics.DBQueryTypeUpdate))
	_ = cb.Delete().After("gorm:delete").Register("metrics:delete", record(metrics.DBQueryTypeDelete))
	_ = cb.Raw().After("gorm:raw").Register("metrics:raw", record(metrics.DBQueryTypeRaw))
}

// RegisterDurationHooks stamps the start time before each operation
func RegisterDurationHooks(db *gorm.DB) {
	cb := db.Callback()
	_ = cb.Create().Before("gorm:create").Register("duration:create", logStart)
	_ = cb.Query().Before("gorm:query").Register("duration:query", logStart)
	_ = cb.Update().Before("gorm:update").Register("duration:update", logStart)
	_ = cb.Delete().Before("gorm:delete").Register("duration:delete", logStart)
	_ = cb.Raw().Before("gorm:raw").Register("duration:raw", logStart)
}

func logStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func getDuration(db *gorm.DB) time.Duration {
	if start, ok := db.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
