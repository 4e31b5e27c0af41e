package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a scheduled alumni event. CurrentParticipants is denormalized from the
// participation ledger and is only ever written by a recount.
type Event struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Title               string     `gorm:"size:200;not null" json:"title"`
	Description         string     `gorm:"type:text" json:"description"`
	StartDate           time.Time  `gorm:"not null;uniqueIndex:idx_event_occurrence,priority:2" json:"start_date"`
	EndDate             time.Time  `gorm:"not null" json:"end_date"`
	Location            string     `gorm:"size:100" json:"location"`
	EventType           string     `gorm:"size:50" json:"event_type"`
	Active              bool       `gorm:"not null;default:true" json:"active"`
	Privacy             Privacy    `gorm:"size:20;not null;default:'PUBLIC'" json:"privacy"`
	InviteMessage       string     `gorm:"size:500" json:"invite_message"`
	IsOnline            bool       `gorm:"not null;default:false" json:"is_online"`
	MeetingLink         string     `gorm:"size:500" json:"meeting_link"`
	MaxParticipants     int        `gorm:"not null;default:0" json:"max_participants"`
	CurrentParticipants int        `gorm:"not null;default:0" json:"current_participants"`
	OrganizerName       string     `gorm:"size:100" json:"organizer_name"`
	OrganizerEmail      string     `gorm:"size:100" json:"organizer_email"`
	CreatedByUsername   string     `gorm:"size:50;index" json:"created_by_username"`
	RecurringEventID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_event_occurrence,priority:1" json:"recurring_event_id,omitempty"`
}

// BeforeCreate assigns an ID when the caller did not
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
