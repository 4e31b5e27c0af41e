package repositories

import (
	"context"
	"strings"

	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecurringEventRepository provides access to recurring event templates
type RecurringEventRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewRecurringEventRepository creates a new recurring event repository
func NewRecurringEventRepository(db *gorm.DB, readOnlyDB *gorm.DB) *RecurringEventRepository {
	return &RecurringEventRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create inserts a template
func (r *RecurringEventRepository) Create(ctx context.Context, re *models.RecurringEvent) error {
	return translate(r.db.WithContext(ctx).Create(re).Error, "failed to create recurring event")
}

// Save writes every column of an existing template
func (r *RecurringEventRepository) Save(ctx context.Context, re *models.RecurringEvent) error {
	return translate(r.db.WithContext(ctx).Omit("created_at").Save(re).Error, "failed to save recurring event")
}

// SetActive flips the active flag
func (r *RecurringEventRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.RecurringEvent{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return translate(res.Error, "failed to update recurring event")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "failed to update recurring event")
	}
	return nil
}

// Delete removes a template. Materialized occurrences are kept.
func (r *RecurringEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecurringEvent{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete recurring event")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "failed to delete recurring event")
	}
	return nil
}

// GetByID gets a template by ID
func (r *RecurringEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringEvent, error) {
	var re models.RecurringEvent
	if err := r.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&re).Error; err != nil {
		return nil, translate(err, "failed to get recurring event")
	}
	return &re, nil
}

// ListByOrganizer lists the templates created by username
func (r *RecurringEventRepository) ListByOrganizer(ctx context.Context, username string) ([]models.RecurringEvent, error) {
	var res []models.RecurringEvent
	err := r.readOnlyDB.WithContext(ctx).
		Where("created_by_username = ?", username).
		Order("start_date").
		Find(&res).Error
	if err != nil {
		return nil, translate(err, "failed to list recurring events by organizer")
	}
	return res, nil
}

// ListActive lists active templates
func (r *RecurringEventRepository) ListActive(ctx context.Context) ([]models.RecurringEvent, error) {
	var res []models.RecurringEvent
	err := r.readOnlyDB.WithContext(ctx).Where("active = ?", true).Order("start_date").Find(&res).Error
	if err != nil {
		return nil, translate(err, "failed to list active recurring events")
	}
	return res, nil
}

// ListGenerating lists the templates the instance sweep should expand
func (r *RecurringEventRepository) ListGenerating(ctx context.Context) ([]models.RecurringEvent, error) {
	var res []models.RecurringEvent
	err := r.readOnlyDB.WithContext(ctx).
		Where("active = ? AND generate_instances = ?", true, true).
		Order("start_date").
		Find(&res).Error
	if err != nil {
		return nil, translate(err, "failed to list generating recurring events")
	}
	return res, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search applies every non-nil filter conjunctively over active templates.
// Text filters are case-insensitive substring matches.
func (r *RecurringEventRepository) Search(ctx context.Context, f models.RecurringEventFilter) ([]models.RecurringEvent, error) {
	q := r.readOnlyDB.WithContext(ctx).Where("active = ?", true)

	like := func(column string, value *string) {
		if value != nil {
			q = q.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(*value))+"%")
		}
	}
	like("location", f.Location)
	like("organizer_name", f.Organizer)
	like("title", f.Title)
	like("description", f.Description)

	if f.EventType != nil {
		q = q.Where("event_type = ?", *f.EventType)
	}
	if f.StartAfter != nil {
		q = q.Where("start_date >= ?", *f.StartAfter)
	}
	if f.EndBefore != nil {
		q = q.Where("end_date <= ?", *f.EndBefore)
	}
	if f.IsOnline != nil {
		q = q.Where("is_online = ?", *f.IsOnline)
	}
	if f.RecurrenceType != nil {
		q = q.Where("recurrence_type = ?", *f.RecurrenceType)
	}

	var res []models.RecurringEvent
	if err := q.Order("start_date").Find(&res).Error; err != nil {
		return nil, translate(err, "failed to search recurring events")
	}
	return res, nil
}

// Count counts templates, optionally only the active ones
func (r *RecurringEventRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	q := r.readOnlyDB.WithContext(ctx).Model(&models.RecurringEvent{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err, "failed to count recurring events")
	}
	return count, nil
}
