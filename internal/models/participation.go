package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participation is one participant's RSVP for one event. The (event, participant) pair is unique.
type Participation struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_participation_event_participant,priority:1;index:idx_participation_event_status,priority:1" json:"event_id"`
	ParticipantID string              `gorm:"size:100;not null;uniqueIndex:idx_participation_event_participant,priority:2;index" json:"participant_id"`
	Status        ParticipationStatus `gorm:"size:20;not null;index:idx_participation_event_status,priority:2" json:"status"`
	Message       *string             `gorm:"size:500" json:"message,omitempty"`
}

// TableName keeps the ledger table name stable
func (Participation) TableName() string { return "event_participations" }

// BeforeCreate assigns an ID when the caller did not
func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ParticipationCounts is a snapshot of the ledger for one event, grouped by status
type ParticipationCounts struct {
	EventID  uuid.UUID  `json:"event_id"`
	Going    int64      `json:"going"`
	Maybe    int64      `json:"maybe"`
	NotGoing int64      `json:"not_going"`
	FirstAt  *time.Time `json:"first_rsvp_at,omitempty"`
	LastAt   *time.Time `json:"last_rsvp_at,omitempty"`
}
