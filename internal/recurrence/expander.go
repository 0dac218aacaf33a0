// Package recurrence expands recurrence rules into concrete publish times.
package recurrence

import (
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const (
	// DefaultMaxIterations bounds the cursor walk for any rule.
	DefaultMaxIterations = 1000
	// DefaultEndCount applies to EndAfter rules without a count.
	DefaultEndCount = 10
)

// Expander turns rules into occurrence lists. It is safe for concurrent use.
type Expander struct {
	maxIterations   int
	defaultEndCount int
	location        *time.Location
}

// Option configures an Expander.
type Option func(*Expander)

// WithMaxIterations overrides the iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithDefaultEndCount overrides the count used for EndAfter without EndCount.
func WithDefaultEndCount(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.defaultEndCount = n
		}
	}
}

// WithLocation sets the zone in which Time and day boundaries are evaluated.
func WithLocation(loc *time.Location) Option {
	return func(e *Expander) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewExpander returns an Expander evaluating in UTC with the default cap.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		maxIterations:   DefaultMaxIterations,
		defaultEndCount: DefaultEndCount,
		location:        time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxIterations returns the configured cap.
func (e *Expander) MaxIterations() int {
	return e.maxIterations
}

// Generate validates rule and returns its occurrences in ascending order.
// An empty result is not an error here; reaching the cap returns what was
// collected so far.
func (e *Expander) Generate(rule domain.RecurrenceRule) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.EndType == domain.EndAfter && rule.EndCount == 0 {
		rule.EndCount = e.defaultEndCount
	}
	return expand(rule, e.maxIterations, e.location), nil
}

// GenerateScheduleDates expands rule in the location of its StartDate.
func GenerateScheduleDates(rule domain.RecurrenceRule, maxIterations int) ([]time.Time, error) {
	return NewExpander(
		WithMaxIterations(maxIterations),
		WithLocation(rule.StartDate.Location()),
	).Generate(rule)
}

func expand(rule domain.RecurrenceRule, maxIterations int, loc *time.Location) []time.Time {
	hour, minute, _ := domain.ParseClock(rule.Time)
	start := rule.StartDate.In(loc)
	cursor := time.Date(start.Year(), start.Month(), start.Day(), hour, minute, 0, 0, loc)

	dates := make([]time.Time, 0)
	for range maxIterations {
		if qualifies(rule, cursor) {
			if rule.EndType == domain.EndOn && rule.EndDate != nil && cursor.After(*rule.EndDate) {
				break
			}
			if rule.EndType == domain.EndAfter && len(dates) >= rule.EndCount {
				break
			}
			dates = append(dates, cursor)
		}
		cursor = advance(rule, cursor, len(dates))
	}
	return dates
}

func qualifies(rule domain.RecurrenceRule, cursor time.Time) bool {
	switch rule.Pattern {
	case domain.PatternDaily:
		return true
	case domain.PatternWeekly:
		wd := int(cursor.Weekday())
		for _, d := range rule.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	case domain.PatternMonthly:
		return cursor.Day() == min(rule.MonthDay, daysIn(cursor.Year(), cursor.Month()))
	default:
		return false
	}
}

func advance(rule domain.RecurrenceRule, cursor time.Time, recorded int) time.Time {
	switch rule.Pattern {
	case domain.PatternDaily:
		return cursor.AddDate(0, 0, rule.Interval)
	case domain.PatternWeekly:
		next := cursor.AddDate(0, 0, 1)
		if next.Weekday() == time.Sunday && recorded > 0 {
			next = next.AddDate(0, 0, 7*(rule.Interval-1))
		}
		return next
	case domain.PatternMonthly:
		next := addMonths(cursor, rule.Interval)
		return withDay(next, rule.MonthDay)
	default:
		return cursor.AddDate(0, 0, 1)
	}
}

// addMonths moves n calendar months, clamping to the target month's last day
// instead of overflowing into the next month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, n, 0)
	return withDay(first, t.Day())
}

// withDay sets the day of month, clamped to the month's length.
func withDay(t time.Time, day int) time.Time {
	day = min(day, daysIn(t.Year(), t.Month()))
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
