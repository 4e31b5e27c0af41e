package models

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidEnum is returned when a boundary value does not belong to a closed vocabulary
var ErrInvalidEnum = errors.New("invalid enum value")

// ParticipationStatus is the RSVP state of one participant for one event
type ParticipationStatus string

const (
	StatusGoing    ParticipationStatus = "GOING"
	StatusMaybe    ParticipationStatus = "MAYBE"
	StatusNotGoing ParticipationStatus = "NOT_GOING"
)

// ParseParticipationStatus maps wire values onto a status. The legacy RSVP vocabulary
// (CONFIRMED / DECLINED) is accepted as an alias.
func ParseParticipationStatus(raw string) (ParticipationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GOING", "CONFIRMED":
		return StatusGoing, nil
	case "MAYBE":
		return StatusMaybe, nil
	case "NOT_GOING", "DECLINED":
		return StatusNotGoing, nil
	}
	return "", errors.Wrapf(ErrInvalidEnum, "participation status %q", raw)
}

// Valid reports whether s is one of the known statuses
func (s ParticipationStatus) Valid() bool {
	return s == StatusGoing || s == StatusMaybe || s == StatusNotGoing
}

// RecurrenceType is the unit a recurring event steps by
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "DAILY"
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
	RecurrenceYearly  RecurrenceType = "YEARLY"
)

// ParseRecurrenceType parses a recurrence type, case-insensitively
func ParseRecurrenceType(raw string) (RecurrenceType, error) {
	t := RecurrenceType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", errors.Wrapf(ErrInvalidEnum, "recurrence type %q", raw)
	}
	return t, nil
}

// Valid reports whether t is one of the known recurrence types
func (t RecurrenceType) Valid() bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Privacy controls who may see an event
type Privacy string

const (
	PrivacyPublic     Privacy = "PUBLIC"
	PrivacyPrivate    Privacy = "PRIVATE"
	PrivacyInviteOnly Privacy = "INVITE_ONLY"
)

// ParsePrivacy parses a privacy value; empty input defaults to PUBLIC
func ParsePrivacy(raw string) (Privacy, error) {
	p := Privacy(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" {
		return PrivacyPublic, nil
	}
	if !p.Valid() {
		return "", errors.Wrapf(ErrInvalidEnum, "privacy %q", raw)
	}
	return p, nil
}

// Valid reports whether p is one of the known privacy values
func (p Privacy) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate || p == PrivacyInviteOnly
}
