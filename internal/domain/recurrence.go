package domain

import (
	"slices"
	"time"
)

// Pattern is the recurrence unit.
type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

// EndType selects how a recurrence stops.
type EndType string

const (
	EndNever EndType = "never"
	EndAfter EndType = "after"
	EndOn    EndType = "on"
)

// RecurrenceRule declares a series of publish times.
type RecurrenceRule struct {
	StartDate time.Time
	Pattern   Pattern
	// Interval is the step in days, weeks or months.
	Interval int
	// Weekdays holds 0 (Sunday) through 6.
	Weekdays []int
	MonthDay int
	// Time is the HH:MM wall-clock time applied to every occurrence.
	Time     string
	EndType  EndType
	EndCount int
	EndDate  *time.Time
}

// Validate checks the rule before expansion. EndCount 0 with EndAfter is
// allowed and means the configured default.
func (r RecurrenceRule) Validate() error {
	if r.StartDate.IsZero() {
		return Validation("startDate is required")
	}
	if _, _, err := ParseClock(r.Time); err != nil {
		return err
	}
	if r.Interval < 1 {
		return Validation("interval must be at least 1")
	}

	switch r.Pattern {
	case PatternDaily:
	case PatternWeekly:
		if len(r.Weekdays) == 0 {
			return Validation("weekdays are required for a weekly pattern")
		}
		if slices.ContainsFunc(r.Weekdays, func(d int) bool { return d < 0 || d > 6 }) {
			return Validation("weekdays must be between 0 (Sunday) and 6 (Saturday)")
		}
	case PatternMonthly:
		if r.MonthDay < 1 || r.MonthDay > 31 {
			return Validation("monthDay between 1 and 31 is required for a monthly pattern")
		}
	default:
		return Validation("pattern must be daily, weekly or monthly")
	}

	switch r.EndType {
	case EndNever, "":
	case EndAfter:
		if r.EndCount < 0 {
			return Validation("endCount must be at least 1")
		}
	case EndOn:
		if r.EndDate == nil {
			return Validation("endDate is required when endType is on")
		}
	default:
		return Validation("endType must be never, after or on")
	}
	return nil
}

// ParseClock parses HH:MM.
func ParseClock(s string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", s)
	if perr != nil {
		return 0, 0, Validation("time must be in HH:MM format")
	}
	return t.Hour(), t.Minute(), nil
}
