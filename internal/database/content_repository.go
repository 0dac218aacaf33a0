package database

import (
	"context"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const contentSelectList = `id, creator_id, title, status, scheduled_at, published_at, created_at, updated_at`

// ContentRepository serves the videos or blogs table.
type ContentRepository struct {
	q           querier
	contentType domain.ContentType
	table       string
	refColumn   string
}

func newContentRepository(q querier, contentType domain.ContentType) *ContentRepository {
	r := &ContentRepository{q: q, contentType: contentType, table: "videos", refColumn: "video_id"}
	if contentType == domain.ContentTypeBlog {
		r.table, r.refColumn = "blogs", "blog_id"
	}
	return r
}

func (r *ContentRepository) stamp(c *domain.Content) *domain.Content {
	c.Type = r.contentType
	return c
}

// FindOwned returns the row if it exists and, when creatorID is set, belongs to it.
func (r *ContentRepository) FindOwned(ctx context.Context, id, creatorID string) (*domain.Content, error) {
	query := `SELECT ` + contentSelectList + ` FROM ` + r.table + ` WHERE id = $1`
	args := []any{id}
	if creatorID != "" {
		query += ` AND creator_id = $2`
		args = append(args, creatorID)
	}

	var c domain.Content
	if err := getOne(ctx, r.q, &c, query, args...); err != nil {
		return nil, wrap("find "+r.table, err)
	}
	return r.stamp(&c), nil
}

// Lock reads the row FOR UPDATE.
func (r *ContentRepository) Lock(ctx context.Context, id string) (*domain.Content, error) {
	query := `SELECT ` + contentSelectList + ` FROM ` + r.table + ` WHERE id = $1 FOR UPDATE`

	var c domain.Content
	if err := getOne(ctx, r.q, &c, query, id); err != nil {
		return nil, wrap("lock "+r.table, err)
	}
	return r.stamp(&c), nil
}

// MarkScheduled sets SCHEDULED and mirrors the publish time.
func (r *ContentRepository) MarkScheduled(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE ` + r.table + `
		SET status = 'SCHEDULED', scheduled_at = $2, updated_at = NOW()
		WHERE id = $1`
	return wrap("mark "+r.table+" scheduled", execExpectOneRow(ctx, r.q, query, id, at))
}

// SetScheduledAt mirrors a changed publish time.
func (r *ContentRepository) SetScheduledAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE ` + r.table + ` SET scheduled_at = $2, updated_at = NOW() WHERE id = $1`
	return wrap("set "+r.table+" scheduled_at", execExpectOneRow(ctx, r.q, query, id, at))
}

// ResetToDraft returns cancelled content to DRAFT.
func (r *ContentRepository) ResetToDraft(ctx context.Context, id string) error {
	query := `UPDATE ` + r.table + `
		SET status = 'DRAFT', scheduled_at = NULL, updated_at = NOW()
		WHERE id = $1`
	return wrap("reset "+r.table+" to draft", execExpectOneRow(ctx, r.q, query, id))
}

// Publish sets PUBLISHED with published_at = at. ARCHIVED rows are not
// touched and yield domain.ErrNotFound.
func (r *ContentRepository) Publish(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE ` + r.table + `
		SET status = 'PUBLISHED', published_at = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'ARCHIVED'`
	return wrap("publish "+r.table, execExpectOneRow(ctx, r.q, query, id, at))
}

// ListAvailable returns DRAFT and PUBLISHED rows without an active schedule,
// newest first.
func (r *ContentRepository) ListAvailable(ctx context.Context, creatorID string) ([]domain.Content, error) {
	query := `SELECT ` + contentSelectList + ` FROM ` + r.table + ` c
		WHERE c.status IN ('DRAFT', 'PUBLISHED')
		  AND NOT EXISTS (
			SELECT 1 FROM scheduled_content s
			WHERE s.` + r.refColumn + ` = c.id AND s.status IN ('PENDING', 'FAILED')
		  )`
	var args []any
	if creatorID != "" {
		query += ` AND c.creator_id = $1`
		args = append(args, creatorID)
	}
	query += ` ORDER BY c.created_at DESC`

	items := make([]domain.Content, 0)
	if err := r.q.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, wrap("list available "+r.table, err)
	}
	for i := range items {
		r.stamp(&items[i])
	}
	return items, nil
}
