package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecurringEvent is a template that the expander turns into dated Event occurrences
type RecurringEvent struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	Title              string         `gorm:"size:200;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	StartDate          time.Time      `gorm:"not null" json:"start_date"`
	EndDate            time.Time      `gorm:"not null" json:"end_date"`
	Location           string         `gorm:"size:100" json:"location"`
	EventType          string         `gorm:"size:50" json:"event_type"`
	Active             bool           `gorm:"not null;default:true;index" json:"active"`
	Privacy            Privacy        `gorm:"size:20;not null;default:'PUBLIC'" json:"privacy"`
	InviteMessage      string         `gorm:"size:500" json:"invite_message"`
	IsOnline           bool           `gorm:"not null;default:false" json:"is_online"`
	MeetingLink        string         `gorm:"size:500" json:"meeting_link"`
	MaxParticipants    int            `gorm:"not null;default:0" json:"max_participants"`
	OrganizerName      string         `gorm:"size:100" json:"organizer_name"`
	OrganizerEmail     string         `gorm:"size:100" json:"organizer_email"`
	CreatedByUsername  string         `gorm:"size:50;index" json:"created_by_username"`
	RecurrenceType     RecurrenceType `gorm:"size:20;not null" json:"recurrence_type"`
	RecurrenceInterval int            `gorm:"not null;default:1" json:"recurrence_interval"`
	RecurrenceEndDate  *time.Time     `json:"recurrence_end_date,omitempty"`
	RecurrenceDays     DaySet         `gorm:"type:varchar(100)" json:"recurrence_days"`
	MaxOccurrences     int            `gorm:"not null;default:0" json:"max_occurrences"`
	GenerateInstances  bool           `gorm:"not null;default:true" json:"generate_instances"`
}

// BeforeCreate assigns an ID when the caller did not
func (r *RecurringEvent) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Duration is the length of every occurrence
func (r *RecurringEvent) Duration() time.Duration {
	return r.EndDate.Sub(r.StartDate)
}

// Occurrence materializes the template at the given start time
func (r *RecurringEvent) Occurrence(start time.Time) *Event {
	id := r.ID
	return &Event{
		Title:             r.Title,
		Description:       r.Description,
		StartDate:         start,
		EndDate:           start.Add(r.Duration()),
		Location:          r.Location,
		EventType:         r.EventType,
		Active:            true,
		Privacy:           r.Privacy,
		InviteMessage:     r.InviteMessage,
		IsOnline:          r.IsOnline,
		MeetingLink:       r.MeetingLink,
		MaxParticipants:   r.MaxParticipants,
		OrganizerName:     r.OrganizerName,
		OrganizerEmail:    r.OrganizerEmail,
		CreatedByUsername: r.CreatedByUsername,
		RecurringEventID:  &id,
	}
}

// RecurringEventFilter holds the optional, conjunctive search criteria for templates.
// Nil fields match everything.
type RecurringEventFilter struct {
	Location       *string
	EventType      *string
	StartAfter     *time.Time
	EndBefore      *time.Time
	IsOnline       *bool
	Organizer      *string
	Title          *string
	Description    *string
	RecurrenceType *RecurrenceType
}
