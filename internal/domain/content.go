package domain

import (
	"strings"
	"time"
)

// ContentType discriminates the two schedulable content tables.
type ContentType string

const (
	ContentTypeVideo ContentType = "VIDEO"
	ContentTypeBlog  ContentType = "BLOG"
)

// ContentTypes lists every type in probe order.
var ContentTypes = []ContentType{ContentTypeVideo, ContentTypeBlog}

// ParseContentType accepts either case.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToUpper(strings.TrimSpace(s))) {
	case ContentTypeVideo:
		return ContentTypeVideo, nil
	case ContentTypeBlog:
		return ContentTypeBlog, nil
	default:
		return "", Validation("contentType must be VIDEO or BLOG")
	}
}

// ContentStatus is the publication state of a video or blog.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "DRAFT"
	ContentStatusScheduled ContentStatus = "SCHEDULED"
	ContentStatusPublished ContentStatus = "PUBLISHED"
	ContentStatusArchived  ContentStatus = "ARCHIVED"
)

// Content is the part of a video or blog row the scheduler reads and writes.
type Content struct {
	ID          string        `db:"id"           json:"id"`
	CreatorID   string        `db:"creator_id"   json:"creatorId"`
	Title       string        `db:"title"        json:"title"`
	Status      ContentStatus `db:"status"       json:"status"`
	ScheduledAt *time.Time    `db:"scheduled_at" json:"scheduledAt,omitempty"`
	PublishedAt *time.Time    `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt   time.Time     `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at"   json:"updatedAt"`
	Type        ContentType   `db:"-"            json:"contentType"`
}

// Creator is a creator profile.
type Creator struct {
	ID          string `db:"id"           json:"id"`
	UserID      string `db:"user_id"      json:"userId"`
	DisplayName string `db:"display_name" json:"displayName"`
}
