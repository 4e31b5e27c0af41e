package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParticipationStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want ParticipationStatus
	}{
		{"GOING", StatusGoing},
		{"going", StatusGoing},
		{" Confirmed ", StatusGoing},
		{"MAYBE", StatusMaybe},
		{"NOT_GOING", StatusNotGoing},
		{"declined", StatusNotGoing},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseParticipationStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseParticipationStatus("PENDING")
	assert.True(t, errors.Is(err, ErrInvalidEnum))
	assert.False(t, ParticipationStatus("PENDING").Valid())
}

func TestParseRecurrenceType(t *testing.T) {
	got, err := ParseRecurrenceType("weekly")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceWeekly, got)

	_, err = ParseRecurrenceType("HOURLY")
	assert.True(t, errors.Is(err, ErrInvalidEnum))
}

func TestParsePrivacy(t *testing.T) {
	got, err := ParsePrivacy("")
	require.NoError(t, err)
	assert.Equal(t, PrivacyPublic, got)

	got, err = ParsePrivacy("invite_only")
	require.NoError(t, err)
	assert.Equal(t, PrivacyInviteOnly, got)

	_, err = ParsePrivacy("SECRET")
	assert.True(t, errors.Is(err, ErrInvalidEnum))
}
