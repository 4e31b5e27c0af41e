package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Message types carried in the "type" application property
const (
	TypeParticipationChanged = "participation.changed"
	TypeEngagementCounts     = "engagement.counts"
)

// ParticipationChanged is a post-commit snapshot of one event's ledger, grouped by status
type ParticipationChanged struct {
	EventID     uuid.UUID  `json:"event_id"`
	Going       int64      `json:"going"`
	Maybe       int64      `json:"maybe"`
	NotGoing    int64      `json:"not_going"`
	FirstRSVPAt *time.Time `json:"first_rsvp_at,omitempty"`
	LastRSVPAt  *time.Time `json:"last_rsvp_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// EngagementCounts reports comment, media and reminder totals for an event.
// Nil fields are left unchanged.
type EngagementCounts struct {
	EventID   uuid.UUID `json:"event_id"`
	Comments  *int64    `json:"comments,omitempty"`
	Media     *int64    `json:"media,omitempty"`
	Reminders *int64    `json:"reminders,omitempty"`
}
