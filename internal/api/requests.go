package api

import (
	"strings"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const dateLayout = "2006-01-02"

type scheduleRequest struct {
	ContentType string     `json:"contentType"`
	ContentID   string     `json:"contentId"`
	PublishAt   *time.Time `json:"publishAt"`
	Notes       string     `json:"notes"`
}

func (r scheduleRequest) toDomain() (domain.ScheduleRequest, error) {
	req := domain.ScheduleRequest{ContentID: r.ContentID, Notes: r.Notes}
	if r.PublishAt != nil {
		req.PublishAt = *r.PublishAt
	}
	if r.ContentType != "" {
		ct, err := domain.ParseContentType(r.ContentType)
		if err != nil {
			return req, err
		}
		req.ContentType = ct
	}
	return req, nil
}

type recurringRequest struct {
	ContentIDs []string `json:"contentIds"`
	StartDate  string   `json:"startDate"`
	Pattern    string   `json:"pattern"`
	Interval   *int     `json:"interval"`
	Weekdays   []int    `json:"weekdays"`
	MonthDay   int      `json:"monthDay"`
	EndType    string   `json:"endType"`
	EndCount   int      `json:"endCount"`
	EndDate    string   `json:"endDate"`
	Time       string   `json:"time"`
	Notes      string   `json:"notes"`
}

// toDomain parses dates in loc. A date-only endDate covers that whole day.
// A missing interval means 1; an explicit 0 is rejected by rule validation.
func (r recurringRequest) toDomain(loc *time.Location) (domain.RecurringRequest, error) {
	out := domain.RecurringRequest{ContentIDs: r.ContentIDs, Notes: r.Notes}
	if len(r.ContentIDs) == 0 {
		return out, domain.Validation("At least one content item is required")
	}
	if r.StartDate == "" || r.Pattern == "" || r.Time == "" {
		return out, domain.Validation("Start date, pattern, and time are required")
	}

	start, _, err := parseDate(r.StartDate, loc)
	if err != nil {
		return out, domain.Validation("startDate must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}

	rule := domain.RecurrenceRule{
		StartDate: start,
		Pattern:   domain.Pattern(strings.ToLower(r.Pattern)),
		Interval:  1,
		Weekdays:  r.Weekdays,
		MonthDay:  r.MonthDay,
		Time:      r.Time,
		EndType:   domain.EndType(strings.ToLower(r.EndType)),
		EndCount:  r.EndCount,
	}
	if rule.EndType == "" {
		rule.EndType = domain.EndNever
	}
	if r.Interval != nil {
		rule.Interval = *r.Interval
	}
	if r.EndDate != "" {
		end, dateOnly, parseErr := parseDate(r.EndDate, loc)
		if parseErr != nil {
			return out, domain.Validation("endDate must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		if dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		rule.EndDate = &end
	}

	out.Rule = rule
	return out, nil
}

// parseDate accepts RFC 3339 or a bare date, which is read as midnight in loc.
func parseDate(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation(dateLayout, s, loc)
	return t, err == nil, err
}

type updateRequest struct {
	PublishAt *time.Time `json:"publishAt"`
	Notes     *string    `json:"notes"`
	Status    *string    `json:"status"`
}

func (r updateRequest) toDomain() domain.UpdateRequest {
	out := domain.UpdateRequest{PublishAt: r.PublishAt, Notes: r.Notes}
	if r.Status != nil {
		status := domain.ScheduleStatus(strings.ToUpper(*r.Status))
		out.Status = &status
	}
	return out
}
