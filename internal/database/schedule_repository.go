package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// scheduleSelectList is the column list for scheduled_content (single source for schema changes).
const scheduleSelectList = `s.id, s.content_type, s.video_id, s.blog_id, s.publish_at, s.creator_id,
	s.status, s.notes, s.retry_count, s.created_at, s.updated_at`

// scheduleViewSelect joins each item with its content and creator.
const scheduleViewSelect = `SELECT ` + scheduleSelectList + `,
	COALESCE(v.title, b.title, '') AS title,
	COALESCE(v.status, b.status, '') AS content_status,
	COALESCE(cr.display_name, '') AS creator_name
	FROM scheduled_content s
	LEFT JOIN videos v ON v.id = s.video_id
	LEFT JOIN blogs b ON b.id = s.blog_id
	LEFT JOIN creators cr ON cr.id = s.creator_id`

// ScheduleRepository serves scheduled_content.
type ScheduleRepository struct {
	q querier
}

// Create inserts item and fills its timestamps.
func (r *ScheduleRepository) Create(ctx context.Context, item *domain.ScheduledItem) error {
	query := `
		INSERT INTO scheduled_content
			(id, content_type, video_id, blog_id, publish_at, creator_id, status, notes, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.q.QueryRowxContext(ctx, query,
		item.ID, item.ContentType, item.VideoID, item.BlogID, item.PublishAt,
		item.CreatorID, item.Status, item.Notes, item.RetryCount,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	return wrap("create scheduled content", err)
}

// LockOwned returns the item if it exists and, when creatorID is set, belongs
// to it. The row stays locked until the transaction ends so a concurrent sweep
// claim waits for it.
func (r *ScheduleRepository) LockOwned(ctx context.Context, id, creatorID string) (*domain.ScheduledItem, error) {
	query := `SELECT ` + scheduleSelectList + ` FROM scheduled_content s WHERE s.id = $1`
	args := []any{id}
	if creatorID != "" {
		query += ` AND s.creator_id = $2`
		args = append(args, creatorID)
	}
	query += ` FOR UPDATE`

	var item domain.ScheduledItem
	if err := getOne(ctx, r.q, &item, query, args...); err != nil {
		return nil, wrap("lock scheduled content", err)
	}
	return &item, nil
}

// NextActive returns the earliest publish time among the content's PENDING
// and FAILED items, or nil when none remain.
func (r *ScheduleRepository) NextActive(ctx context.Context, contentType domain.ContentType, contentID string) (*time.Time, error) {
	column := "video_id"
	if contentType == domain.ContentTypeBlog {
		column = "blog_id"
	}
	query := `SELECT MIN(publish_at) FROM scheduled_content
		WHERE ` + column + ` = $1 AND status IN ('PENDING', 'FAILED')`

	var next sql.NullTime
	if err := r.q.GetContext(ctx, &next, query, contentID); err != nil {
		return nil, wrap("find next active schedule", err)
	}
	if !next.Valid {
		return nil, nil
	}
	return &next.Time, nil
}

// HasActive reports whether the content has a PENDING or FAILED item.
func (r *ScheduleRepository) HasActive(ctx context.Context, contentType domain.ContentType, contentID string) (bool, error) {
	column := "video_id"
	if contentType == domain.ContentTypeBlog {
		column = "blog_id"
	}
	query := `SELECT EXISTS (
		SELECT 1 FROM scheduled_content
		WHERE ` + column + ` = $1 AND status IN ('PENDING', 'FAILED'))`

	var exists bool
	if err := r.q.GetContext(ctx, &exists, query, contentID); err != nil {
		return false, wrap("check active schedule", err)
	}
	return exists, nil
}

// Update writes the mutable fields of an active item. A PUBLISHED row is left
// untouched and reported as domain.ErrNotFound.
func (r *ScheduleRepository) Update(ctx context.Context, item *domain.ScheduledItem) error {
	query := `
		UPDATE scheduled_content
		SET publish_at = $2, notes = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')
		RETURNING updated_at`

	err := getOne(ctx, r.q, &item.UpdatedAt, query, item.ID, item.PublishAt, item.Notes, item.Status)
	return wrap("update scheduled content", err)
}

// Delete removes an active item. A PUBLISHED row is kept and reported as
// domain.ErrNotFound.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM scheduled_content WHERE id = $1 AND status IN ('PENDING', 'FAILED')`
	return wrap("delete scheduled content", execExpectOneRow(ctx, r.q, query, id))
}

// ListActive returns PENDING and FAILED items by publish time.
func (r *ScheduleRepository) ListActive(ctx context.Context, creatorID string) ([]domain.ScheduledItemView, error) {
	query := scheduleViewSelect + ` WHERE s.status IN ('PENDING', 'FAILED')`
	var args []any
	if creatorID != "" {
		query += ` AND s.creator_id = $1`
		args = append(args, creatorID)
	}
	query += ` ORDER BY s.publish_at ASC, s.id ASC`

	return r.selectViews(ctx, "list scheduled content", query, args...)
}

// FindDue returns items whose publish time has passed, oldest first.
func (r *ScheduleRepository) FindDue(ctx context.Context, q DueQuery) ([]domain.ScheduledItemView, error) {
	query := scheduleViewSelect + ` WHERE s.publish_at <= $1 AND s.status = 'PENDING'`
	args := []any{q.Now, q.Limit}
	if q.IncludeFailed {
		query = scheduleViewSelect + ` WHERE s.publish_at <= $1
			AND (s.status = 'PENDING' OR (s.status = 'FAILED' AND s.retry_count < $3))`
		args = append(args, q.MaxRetries)
	}
	query += ` ORDER BY s.publish_at ASC, s.id ASC LIMIT $2`

	return r.selectViews(ctx, "find due scheduled content", query, args...)
}

// ClaimPublished conditionally moves the item to PUBLISHED.
func (r *ScheduleRepository) ClaimPublished(
	ctx context.Context, id string, observed domain.ScheduleStatus, observedRetries int, note string,
) (bool, error) {
	query := `
		UPDATE scheduled_content
		SET status = 'PUBLISHED', notes = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND retry_count = $3`

	err := execExpectOneRow(ctx, r.q, query, id, observed, observedRetries, note)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, wrap("claim scheduled content", err)
	}
}

// MarkFailed records a failed publish attempt if the item is still in observed.
func (r *ScheduleRepository) MarkFailed(ctx context.Context, id string, observed domain.ScheduleStatus, note string) error {
	query := `
		UPDATE scheduled_content
		SET status = 'FAILED', notes = $3, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	return wrap("mark scheduled content failed", execExpectOneRow(ctx, r.q, query, id, observed, note))
}

// Upcoming returns PENDING items publishing in [from, to].
func (r *ScheduleRepository) Upcoming(ctx context.Context, from, to time.Time, limit int) ([]domain.ScheduledItemView, error) {
	query := scheduleViewSelect + `
		WHERE s.status = 'PENDING' AND s.publish_at >= $1 AND s.publish_at <= $2
		ORDER BY s.publish_at ASC LIMIT $3`
	return r.selectViews(ctx, "list upcoming", query, from, to, limit)
}

// RecentlyPublished returns items published since, most recent first.
func (r *ScheduleRepository) RecentlyPublished(ctx context.Context, since time.Time, limit int) ([]domain.ScheduledItemView, error) {
	query := scheduleViewSelect + `
		WHERE s.status = 'PUBLISHED' AND s.updated_at >= $1
		ORDER BY s.updated_at DESC LIMIT $2`
	return r.selectViews(ctx, "list recently published", query, since, limit)
}

// CountPending counts PENDING items not yet due at from.
func (r *ScheduleRepository) CountPending(ctx context.Context, from time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM scheduled_content WHERE status = 'PENDING' AND publish_at >= $1`
	if err := r.q.GetContext(ctx, &n, query, from); err != nil {
		return 0, wrap("count pending", err)
	}
	return n, nil
}

func (r *ScheduleRepository) selectViews(ctx context.Context, op, query string, args ...any) ([]domain.ScheduledItemView, error) {
	views := make([]domain.ScheduledItemView, 0)
	if err := r.q.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, wrap(op, err)
	}
	return views, nil
}
