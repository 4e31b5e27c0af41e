package models

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DaySet is the set of weekdays a weekly recurrence fires on.
// It is persisted as a comma-separated list of upper-case weekday names.
type DaySet []time.Weekday

var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SU":        time.Sunday,
	"MO":        time.Monday,
	"TU":        time.Tuesday,
	"WE":        time.Wednesday,
	"TH":        time.Thursday,
	"FR":        time.Friday,
	"SA":        time.Saturday,
}

// ParseDaySet parses "MONDAY,WEDNESDAY" style input. Duplicates collapse; empty input yields
// an empty set.
func ParseDaySet(raw string) (DaySet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DaySet{}, nil
	}
	return ParseDayList(strings.Split(raw, ","))
}

// ParseDayList parses a list of weekday names
func ParseDayList(names []string) (DaySet, error) {
	seen := make(map[time.Weekday]bool, len(names))
	days := make(DaySet, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidEnum, "weekday %q", name)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	days.sortMondayFirst()
	return days, nil
}

// Contains reports whether d is in the set
func (s DaySet) Contains(d time.Weekday) bool {
	for _, day := range s {
		if day == d {
			return true
		}
	}
	return false
}

// Sorted returns a Monday-first copy of s without duplicates
func (s DaySet) Sorted() DaySet {
	out := make(DaySet, 0, len(s))
	for _, d := range s {
		if !out.Contains(d) {
			out = append(out, d)
		}
	}
	out.sortMondayFirst()
	return out
}

// String renders the set in its persisted form
func (s DaySet) String() string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = strings.ToUpper(d.String())
	}
	return strings.Join(names, ",")
}

// Value implements the driver.Valuer interface
func (s DaySet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements the sql.Scanner interface
func (s *DaySet) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = DaySet{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return errors.Errorf("cannot scan %T into DaySet", src)
	}
	parsed, err := ParseDaySet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON renders the set as a list of weekday names
func (s DaySet) MarshalJSON() ([]byte, error) {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = strings.ToUpper(d.String())
	}
	return json.Marshal(names)
}

// UnmarshalJSON accepts a list of weekday names
func (s *DaySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseDayList(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MondayOffset is the number of days d lies after Monday (Monday = 0, Sunday = 6)
func MondayOffset(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func (s DaySet) sortMondayFirst() {
	sort.Slice(s, func(i, j int) bool {
		return MondayOffset(s[i]) < MondayOffset(s[j])
	})
}
