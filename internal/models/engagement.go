package models

import (
	"time"

	"github.com/google/uuid"
)

// EventComment, EventMedia and EventReminder are owned by other subsystems. This service only
// counts them per event, so just the columns needed for that are mapped.

// EventComment is a comment left on an event
type EventComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// EventMedia is a photo or video uploaded to an event
type EventMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName maps media to its table
func (EventMedia) TableName() string { return "event_media" }

// EventReminder is a reminder a user set for an event
type EventReminder struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
