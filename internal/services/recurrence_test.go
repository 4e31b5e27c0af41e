package services

import (
	"testing"
	"time"

	"example.com/alumni/services/events/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-01-06 is a Monday
var monday = time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC)

func template(rt models.RecurrenceType, interval int) *models.RecurringEvent {
	return &models.RecurringEvent{
		Title:              "Alumni meetup",
		StartDate:          monday,
		EndDate:            monday.Add(90 * time.Minute),
		Active:             true,
		GenerateInstances:  true,
		RecurrenceType:     rt,
		RecurrenceInterval: interval,
	}
}

func starts(occ []Occurrence) []time.Time {
	out := make([]time.Time, len(occ))
	for i, o := range occ {
		out[i] = o.Start
	}
	return out
}

func TestExpand_WeeklyMondayMaxThree(t *testing.T) {
	tpl := template(models.RecurrenceWeekly, 1)
	tpl.RecurrenceDays = models.DaySet{time.Monday}
	tpl.MaxOccurrences = 3

	x := &Expander{Horizon: 365 * 24 * time.Hour, MaxPerCall: 500}
	occ, err := x.Expand(tpl, monday)
	require.NoError(t, err)
	require.Len(t, occ, 3)

	for i := 1; i < len(occ); i++ {
		assert.Equal(t, 7*24*time.Hour, occ[i].Start.Sub(occ[i-1].Start))
	}
	for _, o := range occ {
		assert.Equal(t, time.Monday, o.Start.Weekday())
		assert.Equal(t, 90*time.Minute, o.End.Sub(o.Start))
	}
}

func TestExpand_ZeroIntervalFails(t *testing.T) {
	for _, rt := range []models.RecurrenceType{models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly} {
		tpl := template(rt, 0)
		tpl.MaxOccurrences = 5

		occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 10}).Expand(tpl, monday)
		assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule), string(rt))
		assert.Empty(t, occ)
	}

	tpl := template(models.RecurrenceDaily, -2)
	_, err := (&Expander{Horizon: time.Hour}).Expand(tpl, monday)
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))
}

func TestExpand_InvalidRules(t *testing.T) {
	x := &Expander{Horizon: time.Hour, MaxPerCall: 10}

	tpl := template("HOURLY", 1)
	_, err := x.Expand(tpl, monday)
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))

	tpl = template(models.RecurrenceWeekly, 1)
	tpl.RecurrenceDays = models.DaySet{time.Weekday(9)}
	_, err = x.Expand(tpl, monday)
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))

	tpl = template(models.RecurrenceDaily, 1)
	tpl.MaxOccurrences = -1
	_, err = x.Expand(tpl, monday)
	assert.True(t, errors.Is(err, ErrInvalidRecurrenceRule))
}

func TestExpand_DailyUntilEndDateInclusive(t *testing.T) {
	tpl := template(models.RecurrenceDaily, 2)
	end := monday.AddDate(0, 0, 6)
	tpl.RecurrenceEndDate = &end

	occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 100}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		monday,
		monday.AddDate(0, 0, 2),
		monday.AddDate(0, 0, 4),
		monday.AddDate(0, 0, 6),
	}, starts(occ))
}

func TestExpand_WeeklyMultipleDaysEveryOtherWeek(t *testing.T) {
	// starts on a Wednesday; the Monday of the first week is skipped
	start := monday.AddDate(0, 0, 2)
	tpl := template(models.RecurrenceWeekly, 2)
	tpl.StartDate = start
	tpl.EndDate = start.Add(time.Hour)
	tpl.RecurrenceDays = models.DaySet{time.Friday, time.Monday}
	tpl.MaxOccurrences = 4

	occ, err := (&Expander{Horizon: 365 * 24 * time.Hour, MaxPerCall: 100}).Expand(tpl, start)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		monday.AddDate(0, 0, 4),  // Fri, week 0
		monday.AddDate(0, 0, 14), // Mon, week 2
		monday.AddDate(0, 0, 18), // Fri, week 2
		monday.AddDate(0, 0, 28), // Mon, week 4
	}, starts(occ))
}

func TestExpand_WeeklyEmptyDaySetUsesTemplateWeekday(t *testing.T) {
	start := monday.AddDate(0, 0, 3) // Thursday
	tpl := template(models.RecurrenceWeekly, 1)
	tpl.StartDate = start
	tpl.EndDate = start.Add(time.Hour)
	tpl.MaxOccurrences = 3

	occ, err := (&Expander{Horizon: 365 * 24 * time.Hour, MaxPerCall: 100}).Expand(tpl, start)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	for _, o := range occ {
		assert.Equal(t, time.Thursday, o.Start.Weekday())
	}
}

func TestExpand_MonthlyClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	tpl := template(models.RecurrenceMonthly, 1)
	tpl.StartDate = start
	tpl.EndDate = start.Add(time.Hour)
	tpl.MaxOccurrences = 4

	occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 100}).Expand(tpl, start)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC),
	}, starts(occ))
}

func TestExpand_YearlyLeapDay(t *testing.T) {
	start := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	tpl := template(models.RecurrenceYearly, 1)
	tpl.StartDate = start
	tpl.EndDate = start.Add(time.Hour)
	tpl.MaxOccurrences = 2

	occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 100}).Expand(tpl, start)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{start, time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)}, starts(occ))
}

func TestExpand_UnboundedStopsAtHorizon(t *testing.T) {
	tpl := template(models.RecurrenceDaily, 1)

	occ, err := (&Expander{Horizon: 10 * 24 * time.Hour, MaxPerCall: 1000}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Len(t, occ, 11)
	assert.Equal(t, monday.AddDate(0, 0, 10), occ[len(occ)-1].Start)
}

func TestExpand_MaxPerCallCapsEverything(t *testing.T) {
	tpl := template(models.RecurrenceDaily, 1)
	tpl.MaxOccurrences = 50

	occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 7}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Len(t, occ, 7)
}

func TestExpand_InactiveTemplateYieldsNothing(t *testing.T) {
	tpl := template(models.RecurrenceDaily, 1)
	tpl.MaxOccurrences = 3
	tpl.Active = false

	occ, err := (&Expander{Horizon: time.Hour, MaxPerCall: 7}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Empty(t, occ)

	tpl.Active = true
	tpl.GenerateInstances = false
	occ, err = (&Expander{Horizon: time.Hour, MaxPerCall: 7}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestExpand_MaxOccurrencesBoundsWithoutCap(t *testing.T) {
	tpl := template(models.RecurrenceDaily, 1)
	tpl.MaxOccurrences = 5

	occ, err := (&Expander{}).Expand(tpl, monday)
	require.NoError(t, err)
	assert.Len(t, occ, 5)
}
