package repositories

import (
	"context"

	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CountRepository counts rows of an engagement table (comments, media, reminders) per event
type CountRepository struct {
	readOnlyDB *gorm.DB
	model      interface{}
	name       string
}

// NewCommentCountRepository counts event comments
func NewCommentCountRepository(readOnlyDB *gorm.DB) *CountRepository {
	return &CountRepository{readOnlyDB: readOnlyDB, model: &models.EventComment{}, name: "comments"}
}

// NewMediaCountRepository counts event media uploads
func NewMediaCountRepository(readOnlyDB *gorm.DB) *CountRepository {
	return &CountRepository{readOnlyDB: readOnlyDB, model: &models.EventMedia{}, name: "media"}
}

// NewReminderCountRepository counts event reminders
func NewReminderCountRepository(readOnlyDB *gorm.DB) *CountRepository {
	return &CountRepository{readOnlyDB: readOnlyDB, model: &models.EventReminder{}, name: "reminders"}
}

// CountByEvent counts the rows belonging to an event
func (r *CountRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).Model(r.model).Where("event_id = ?", eventID).Count(&count).Error
	if err != nil {
		return 0, translate(err, "failed to count "+r.name)
	}
	return count, nil
}
