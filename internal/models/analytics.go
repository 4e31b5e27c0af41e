package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventAnalytics holds the counters reported for an event and the rates derived from them.
// Rates are percentages and are not clamped to [0, 100].
type EventAnalytics struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt                time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	EventID                  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"event_id"`
	EventTitle               string     `gorm:"size:200" json:"event_title"`
	OrganizerUsername        string     `gorm:"size:50;index" json:"organizer_username"`
	TotalInvitations         int        `gorm:"not null;default:0" json:"total_invitations"`
	ConfirmedAttendees       int        `gorm:"not null;default:0" json:"confirmed_attendees"`
	MaybeAttendees           int        `gorm:"not null;default:0" json:"maybe_attendees"`
	DeclinedAttendees        int        `gorm:"not null;default:0" json:"declined_attendees"`
	PendingResponses         int        `gorm:"not null;default:0" json:"pending_responses"`
	TotalComments            int        `gorm:"not null;default:0" json:"total_comments"`
	TotalMediaUploads        int        `gorm:"not null;default:0" json:"total_media_uploads"`
	TotalReminders           int        `gorm:"not null;default:0" json:"total_reminders"`
	FirstRSVPTime            *time.Time `json:"first_rsvp_time,omitempty"`
	LastRSVPTime             *time.Time `json:"last_rsvp_time,omitempty"`
	AverageResponseTimeHours int        `gorm:"not null;default:0" json:"average_response_time_hours"`
	AttendanceRate           *float64   `json:"attendance_rate"`
	EngagementRate           *float64   `json:"engagement_rate"`
	IsCompleted              bool       `gorm:"not null;default:false;index" json:"is_completed"`
	EventStartDate           *time.Time `gorm:"index" json:"event_start_date,omitempty"`
	EventEndDate             *time.Time `json:"event_end_date,omitempty"`
}

// TableName keeps the analytics table name stable
func (EventAnalytics) TableName() string { return "event_analytics" }

// BeforeCreate assigns an ID when the caller did not
func (a *EventAnalytics) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AttendanceRateValue returns the attendance rate or 0 when it has not been computed
func (a *EventAnalytics) AttendanceRateValue() float64 {
	if a.AttendanceRate == nil {
		return 0
	}
	return *a.AttendanceRate
}

// EngagementRateValue returns the engagement rate or 0 when it has not been computed
func (a *EventAnalytics) EngagementRateValue() float64 {
	if a.EngagementRate == nil {
		return 0
	}
	return *a.EngagementRate
}

// OrganizerSummary rolls analytics up across one organizer's events
type OrganizerSummary struct {
	OrganizerUsername     string  `json:"organizer_username"`
	TotalEvents           int64   `json:"total_events"`
	CompletedEvents       int64   `json:"completed_events"`
	AverageAttendanceRate float64 `json:"average_attendance_rate"`
	AverageEngagementRate float64 `json:"average_engagement_rate"`
}
