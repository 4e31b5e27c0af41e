package repositories

import (
	"context"
	"time"

	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository provides access to event analytics rows
type AnalyticsRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB, readOnlyDB *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, readOnlyDB: readOnlyDB}
}

// WithTx returns a repository bound to tx for both reads and writes
func (r *AnalyticsRepository) WithTx(tx *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: tx, readOnlyDB: tx}
}

// GetByEventID gets the analytics row of an event
func (r *AnalyticsRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, error) {
	var a models.EventAnalytics
	if err := r.readOnlyDB.WithContext(ctx).Where("event_id = ?", eventID).First(&a).Error; err != nil {
		return nil, translate(err, "failed to get analytics by event ID")
	}
	return &a, nil
}

// GetByEventIDForUpdate reads through the write handle and, on postgres, locks the row
func (r *AnalyticsRepository) GetByEventIDForUpdate(ctx context.Context, eventID uuid.UUID) (*models.EventAnalytics, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var a models.EventAnalytics
	if err := db.Where("event_id = ?", eventID).First(&a).Error; err != nil {
		return nil, translate(err, "failed to get analytics by event ID")
	}
	return &a, nil
}

// CreateIfAbsent inserts a, leaving an existing row for the same event untouched
func (r *AnalyticsRepository) CreateIfAbsent(ctx context.Context, a *models.EventAnalytics) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(a).Error
	return translate(err, "failed to create analytics")
}

// Save writes every column of a
func (r *AnalyticsRepository) Save(ctx context.Context, a *models.EventAnalytics) error {
	return translate(r.db.WithContext(ctx).Omit("created_at").Save(a).Error, "failed to save analytics")
}

// UpdateRates writes only the derived rates
func (r *AnalyticsRepository) UpdateRates(ctx context.Context, id uuid.UUID, attendance, engagement *float64) error {
	err := r.db.WithContext(ctx).
		Model(&models.EventAnalytics{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attendance_rate": attendance,
			"engagement_rate": engagement,
			"updated_at":      time.Now(),
		}).Error
	return translate(err, "failed to update analytics rates")
}

// FindInBatches walks every analytics row in ID order
func (r *AnalyticsRepository) FindInBatches(ctx context.Context, size int, fn func(batch []models.EventAnalytics) error) error {
	var batch []models.EventAnalytics
	res := r.readOnlyDB.WithContext(ctx).
		FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return translate(res.Error, "failed to scan analytics")
}

func (r *AnalyticsRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, msg string) ([]models.EventAnalytics, error) {
	var res []models.EventAnalytics
	if err := scope(r.readOnlyDB.WithContext(ctx)).Find(&res).Error; err != nil {
		return nil, translate(err, msg)
	}
	return res, nil
}

// ListByOrganizer lists an organizer's analytics rows
func (r *AnalyticsRepository) ListByOrganizer(ctx context.Context, username string) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("organizer_username = ?", username).Order("event_start_date DESC")
	}, "failed to list analytics by organizer")
}

// ListCompleted lists completed rows
func (r *AnalyticsRepository) ListCompleted(ctx context.Context) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_completed = ?", true).Order("event_start_date DESC")
	}, "failed to list completed analytics")
}

// ListByDateRange lists rows whose event starts within [from, to]
func (r *AnalyticsRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("event_start_date >= ? AND event_start_date <= ?", from, to).Order("event_start_date")
	}, "failed to list analytics by date range")
}

// ListByOrganizerAndDateRange lists an organizer's rows whose event starts within [from, to]
func (r *AnalyticsRepository) ListByOrganizerAndDateRange(ctx context.Context, username string, from, to time.Time) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("organizer_username = ? AND event_start_date >= ? AND event_start_date <= ?", username, from, to).
			Order("event_start_date")
	}, "failed to list analytics by organizer and date range")
}

// TopCompletedBy ranks completed rows by a rate column, highest first. limit <= 0 means no limit.
func (r *AnalyticsRepository) TopCompletedBy(ctx context.Context, column string, limit int) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		db = db.Where("is_completed = ? AND "+column+" IS NOT NULL", true).
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}).
			Order("id")
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}, "failed to rank analytics")
}

// ListRateAtLeast lists completed rows whose rate column is at least min, highest first
func (r *AnalyticsRepository) ListRateAtLeast(ctx context.Context, column string, min float64) ([]models.EventAnalytics, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_completed = ? AND "+column+" >= ?", true, min).
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}).
			Order("id")
	}, "failed to filter analytics")
}

// SetCompleted sets the completion flag
func (r *AnalyticsRepository) SetCompleted(ctx context.Context, eventID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.EventAnalytics{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{"is_completed": true, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error, "failed to mark analytics completed")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "failed to mark analytics completed")
	}
	return nil
}

type organizerAggregate struct {
	Total         int64
	Completed     int64
	AvgAttendance *float64
	AvgEngagement *float64
}

// OrganizerSummary aggregates an organizer's rows. Averages cover completed rows only.
func (r *AnalyticsRepository) OrganizerSummary(ctx context.Context, username string) (*models.OrganizerSummary, error) {
	var agg organizerAggregate
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.EventAnalytics{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0) AS completed,
			AVG(CASE WHEN is_completed THEN attendance_rate END) AS avg_attendance,
			AVG(CASE WHEN is_completed THEN engagement_rate END) AS avg_engagement`).
		Where("organizer_username = ?", username).
		Scan(&agg).Error
	if err != nil {
		return nil, translate(err, "failed to summarize organizer analytics")
	}

	summary := &models.OrganizerSummary{
		OrganizerUsername: username,
		TotalEvents:       agg.Total,
		CompletedEvents:   agg.Completed,
	}
	if agg.AvgAttendance != nil {
		summary.AverageAttendanceRate = *agg.AvgAttendance
	}
	if agg.AvgEngagement != nil {
		summary.AverageEngagementRate = *agg.AvgEngagement
	}
	return summary, nil
}
