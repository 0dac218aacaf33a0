package domain

import "time"

// ScheduleStatus is the lifecycle state of a scheduled item.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "PENDING"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusFailed    ScheduleStatus = "FAILED"
)

// IsActive reports whether the item still blocks a new schedule for its content.
func (s ScheduleStatus) IsActive() bool {
	return s == ScheduleStatusPending || s == ScheduleStatusFailed
}

// ScheduledItem pairs one video or blog with a publish time. Exactly one of
// VideoID and BlogID is set, matching ContentType.
type ScheduledItem struct {
	ID          string         `db:"id"           json:"id"`
	ContentType ContentType    `db:"content_type" json:"contentType"`
	VideoID     *string        `db:"video_id"     json:"videoId,omitempty"`
	BlogID      *string        `db:"blog_id"      json:"blogId,omitempty"`
	PublishAt   time.Time      `db:"publish_at"   json:"publishAt"`
	CreatorID   string         `db:"creator_id"   json:"creatorId"`
	Status      ScheduleStatus `db:"status"       json:"status"`
	Notes       string         `db:"notes"        json:"notes"`
	RetryCount  int            `db:"retry_count"  json:"retryCount"`
	CreatedAt   time.Time      `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at"   json:"updatedAt"`
}

// NewScheduledItem builds a PENDING item referencing contentID through the
// column that matches contentType.
func NewScheduledItem(id string, contentType ContentType, contentID, creatorID string, publishAt time.Time, notes string) ScheduledItem {
	item := ScheduledItem{
		ID:          id,
		ContentType: contentType,
		PublishAt:   publishAt,
		CreatorID:   creatorID,
		Status:      ScheduleStatusPending,
		Notes:       notes,
	}
	ref := contentID
	if contentType == ContentTypeVideo {
		item.VideoID = &ref
	} else {
		item.BlogID = &ref
	}
	return item
}

// ContentID returns whichever reference column is set.
func (s *ScheduledItem) ContentID() string {
	switch {
	case s.VideoID != nil:
		return *s.VideoID
	case s.BlogID != nil:
		return *s.BlogID
	default:
		return ""
	}
}

// ScheduledItemView is an item joined with its content for listings.
type ScheduledItemView struct {
	ScheduledItem
	Title         string        `db:"title"          json:"title"`
	ContentStatus ContentStatus `db:"content_status" json:"contentStatus"`
	CreatorName   string        `db:"creator_name"   json:"creator"`
}

// ScheduleRequest asks for one item.
type ScheduleRequest struct {
	ContentType ContentType
	ContentID   string
	PublishAt   time.Time
	Notes       string
}

// RecurringRequest asks for one item per generated occurrence, cycling
// through ContentIDs.
type RecurringRequest struct {
	ContentIDs []string
	Rule       RecurrenceRule
	Notes      string
}

// UpdateRequest changes any subset of the mutable fields.
type UpdateRequest struct {
	PublishAt *time.Time
	Notes     *string
	Status    *ScheduleStatus
}

// IsEmpty reports whether no field was supplied.
func (u UpdateRequest) IsEmpty() bool {
	return u.PublishAt == nil && u.Notes == nil && u.Status == nil
}

// OutcomeKind classifies one occurrence of a recurring request.
type OutcomeKind string

const (
	OutcomeScheduled OutcomeKind = "scheduled"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the result for one (content, occurrence) pair.
type Outcome struct {
	Kind        OutcomeKind `json:"status"`
	ContentID   string      `json:"contentId"`
	ContentType ContentType `json:"contentType,omitempty"`
	PublishAt   time.Time   `json:"publishAt"`
	ItemID      string      `json:"id,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// BulkResult aggregates outcomes in occurrence order.
type BulkResult struct {
	Outcomes       []Outcome `json:"items"`
	ScheduledCount int       `json:"scheduledItems"`
	SkippedCount   int       `json:"skippedItems"`
	FailedCount    int       `json:"failedItems"`
}

// Add appends o and updates the counters.
func (b *BulkResult) Add(o Outcome) {
	b.Outcomes = append(b.Outcomes, o)
	switch o.Kind {
	case OutcomeScheduled:
		b.ScheduledCount++
	case OutcomeSkipped:
		b.SkippedCount++
	case OutcomeFailed:
		b.FailedCount++
	}
}
