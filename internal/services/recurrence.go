package services

import (
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/models"

	"github.com/pkg/errors"
)

// Occurrence is one concrete, dated instance of a recurring event
type Occurrence struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Expander turns recurring event templates into bounded lists of occurrences.
// Horizon bounds templates that have neither an end date nor a max occurrence count;
// MaxPerCall caps every call regardless of the template's own bounds.
type Expander struct {
	Horizon    time.Duration
	MaxPerCall int
}

// NewExpander creates an expander from the job configuration
func NewExpander(cfg config.JobsConfig) *Expander {
	return &Expander{Horizon: cfg.ExpansionHorizon, MaxPerCall: cfg.MaxOccurrencesPerCall}
}

// ValidateRule checks the recurrence fields of a template
func ValidateRule(tpl *models.RecurringEvent) error {
	if !tpl.RecurrenceType.Valid() {
		return errors.Wrapf(ErrInvalidRecurrenceRule, "unknown recurrence type %q", tpl.RecurrenceType)
	}
	if tpl.RecurrenceInterval <= 0 {
		return errors.Wrapf(ErrInvalidRecurrenceRule, "interval must be positive, got %d", tpl.RecurrenceInterval)
	}
	if tpl.MaxOccurrences < 0 {
		return errors.Wrapf(ErrInvalidRecurrenceRule, "max occurrences must not be negative, got %d", tpl.MaxOccurrences)
	}
	for _, d := range tpl.RecurrenceDays {
		if d < time.Sunday || d > time.Saturday {
			return errors.Wrapf(ErrInvalidRecurrenceRule, "invalid weekday %d", d)
		}
	}
	return nil
}

// Expand lists the occurrences of tpl, counted from its start date. Templates that are
// inactive or do not generate instances expand to nothing.
func (x *Expander) Expand(tpl *models.RecurringEvent, asOf time.Time) ([]Occurrence, error) {
	if err := ValidateRule(tpl); err != nil {
		return nil, err
	}
	if !tpl.Active || !tpl.GenerateInstances {
		return nil, nil
	}

	limit := x.MaxPerCall
	if tpl.MaxOccurrences > 0 && (limit <= 0 || tpl.MaxOccurrences < limit) {
		limit = tpl.MaxOccurrences
	}

	var until time.Time
	switch {
	case tpl.RecurrenceEndDate != nil:
		until = *tpl.RecurrenceEndDate
	case tpl.MaxOccurrences == 0:
		until = asOf.Add(x.Horizon)
	}

	// without any bound the per-call cap is the only stop
	if until.IsZero() && limit <= 0 {
		return nil, errors.Wrap(ErrInvalidRecurrenceRule, "recurrence has no bound")
	}

	duration := tpl.Duration()
	var out []Occurrence
	emit := func(start time.Time) bool {
		if !until.IsZero() && start.After(until) {
			return false
		}
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
		return limit <= 0 || len(out) < limit
	}

	switch tpl.RecurrenceType {
	case models.RecurrenceDaily:
		for k := 0; ; k++ {
			if !emit(tpl.StartDate.AddDate(0, 0, k*tpl.RecurrenceInterval)) {
				break
			}
		}
	case models.RecurrenceWeekly:
		x.expandWeekly(tpl, emit)
	case models.RecurrenceMonthly:
		for k := 0; ; k++ {
			if !emit(addMonthsClamped(tpl.StartDate, k*tpl.RecurrenceInterval)) {
				break
			}
		}
	case models.RecurrenceYearly:
		for k := 0; ; k++ {
			if !emit(addMonthsClamped(tpl.StartDate, 12*k*tpl.RecurrenceInterval)) {
				break
			}
		}
	}

	return out, nil
}

// expandWeekly walks week blocks starting on the Monday of the template's week
func (x *Expander) expandWeekly(tpl *models.RecurringEvent, emit func(time.Time) bool) {
	days := tpl.RecurrenceDays
	if len(days) == 0 {
		days = models.DaySet{tpl.StartDate.Weekday()}
	} else {
		days = days.Sorted()
	}

	weekStart := tpl.StartDate.AddDate(0, 0, -models.MondayOffset(tpl.StartDate.Weekday()))
	for week := 0; ; week++ {
		block := weekStart.AddDate(0, 0, 7*week*tpl.RecurrenceInterval)
		for _, d := range days {
			start := block.AddDate(0, 0, models.MondayOffset(d))
			if start.Before(tpl.StartDate) {
				continue
			}
			if !emit(start) {
				return
			}
		}
	}
}

// addMonthsClamped adds n months to t, clamping the day to the end of shorter months
// (Jan 31 + 1 month = Feb 28/29) instead of overflowing into the next month.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}
