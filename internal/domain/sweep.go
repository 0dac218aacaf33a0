package domain

import "time"

// SweepItemStatus is the per-item result of a sweep.
type SweepItemStatus string

const (
	SweepPublished SweepItemStatus = "published"
	SweepFailed    SweepItemStatus = "failed"
	// SweepSkipped means another sweep claimed the item first.
	SweepSkipped SweepItemStatus = "skipped"
)

// SweepItemResult reports one processed item.
type SweepItemResult struct {
	ID          string          `json:"id"`
	ContentType ContentType     `json:"contentType"`
	Title       string          `json:"title,omitempty"`
	Status      SweepItemStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
}

// SweepResult reports one sweep invocation.
type SweepResult struct {
	Processed      []SweepItemResult `json:"processed"`
	PublishedCount int               `json:"publishedCount"`
	FailedCount    int               `json:"failedCount"`
	SkippedCount   int               `json:"skippedCount"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Record appends r and updates the counters.
func (s *SweepResult) Record(r SweepItemResult) {
	s.Processed = append(s.Processed, r)
	switch r.Status {
	case SweepPublished:
		s.PublishedCount++
	case SweepFailed:
		s.FailedCount++
	case SweepSkipped:
		s.SkippedCount++
	}
}

// Total is the number of items the sweep looked at.
func (s *SweepResult) Total() int {
	return len(s.Processed)
}

// SystemStatusOperational is the only status the activity report emits.
const SystemStatusOperational = "operational"

// ActivityEntry is one row of the activity report.
type ActivityEntry struct {
	ID          string         `json:"id"`
	ContentType ContentType    `json:"contentType"`
	Title       string         `json:"title"`
	PublishAt   time.Time      `json:"publishAt"`
	Status      ScheduleStatus `json:"status"`
	Creator     string         `json:"creator"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ActivityReport is the read-only view of upcoming and recent publishing.
type ActivityReport struct {
	Upcoming          []ActivityEntry `json:"upcomingContent"`
	RecentlyPublished []ActivityEntry `json:"recentlyPublished"`
	TotalPending      int             `json:"totalPending"`
	SystemStatus      string          `json:"systemStatus"`
	LastCheck         time.Time       `json:"lastCheck"`
}

// PublishedEvent announces a successful publication.
type PublishedEvent struct {
	ScheduleID  string      `json:"scheduleId"`
	ContentID   string      `json:"contentId"`
	ContentType ContentType `json:"contentType"`
	CreatorID   string      `json:"creatorId"`
	Title       string      `json:"title"`
	PublishedAt time.Time   `json:"publishedAt"`
}
