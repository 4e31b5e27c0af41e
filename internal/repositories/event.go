package repositories

import (
	"context"

	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository provides access to events
type EventRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB, readOnlyDB *gorm.DB) *EventRepository {
	return &EventRepository{db: db, readOnlyDB: readOnlyDB}
}

// WithTx returns a repository bound to tx for both reads and writes
func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx, readOnlyDB: tx}
}

// GetByID gets an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, translate(err, "failed to get event by ID")
	}
	return &event, nil
}

// Exists reports whether an event with the given ID exists
func (r *EventRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, translate(err, "failed to check event existence")
	}
	return count > 0, nil
}

// Save inserts or updates an event. CurrentParticipants is never written here.
func (r *EventRepository) Save(ctx context.Context, event *models.Event) (*models.Event, error) {
	db := r.db.WithContext(ctx)

	var err error
	if event.ID == uuid.Nil {
		active := event.Active
		err = db.Omit("current_participants").Create(event).Error
		// a false zero value is replaced by the column default on insert
		if err == nil && !active {
			err = db.Model(event).Update("active", false).Error
		}
	} else {
		err = db.Omit("current_participants", "created_at").Save(event).Error
	}
	if err != nil {
		return nil, translate(err, "failed to save event")
	}
	return event, nil
}

// LockByID loads an event and holds a row lock on it until the surrounding transaction ends.
// On engines without row locks the transaction itself must already serialize writers.
func (r *EventRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var event models.Event
	if err := db.Where("id = ?", id).First(&event).Error; err != nil {
		return nil, translate(err, "failed to lock event")
	}
	return &event, nil
}

// SetCurrentParticipants writes the recounted GOING total
func (r *EventRepository) SetCurrentParticipants(ctx context.Context, id uuid.UUID, count int) error {
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("current_participants", count).Error
	return translate(err, "failed to update current participants")
}

// ListIDs returns the IDs of every event
func (r *EventRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.readOnlyDB.WithContext(ctx).Model(&models.Event{}).Order("start_date").Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err, "failed to list event IDs")
	}
	return ids, nil
}

// CreateOccurrences inserts materialized occurrences, skipping any that already exist for
// the same template and start time. It returns how many rows were inserted.
func (r *EventRepository) CreateOccurrences(ctx context.Context, events []*models.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recurring_event_id"}, {Name: "start_date"}},
			DoNothing: true,
		}).
		Create(events)
	if res.Error != nil {
		return 0, translate(res.Error, "failed to create occurrences")
	}
	return res.RowsAffected, nil
}

// ListOccurrences lists the materialized occurrences of a template in start order
func (r *EventRepository) ListOccurrences(ctx context.Context, recurringEventID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	err := r.readOnlyDB.WithContext(ctx).
		Where("recurring_event_id = ?", recurringEventID).
		Order("start_date").
		Find(&events).Error
	if err != nil {
		return nil, translate(err, "failed to list occurrences")
	}
	return events, nil
}
