package database

import (
	"context"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// ContentStore reads and writes one content table. An empty creatorID means
// any owner.
type ContentStore interface {
	FindOwned(ctx context.Context, id, creatorID string) (*domain.Content, error)
	// Lock reads the row with FOR UPDATE. Only meaningful inside WithTx.
	Lock(ctx context.Context, id string) (*domain.Content, error)
	MarkScheduled(ctx context.Context, id string, at time.Time) error
	SetScheduledAt(ctx context.Context, id string, at time.Time) error
	ResetToDraft(ctx context.Context, id string) error
	Publish(ctx context.Context, id string, at time.Time) error
	ListAvailable(ctx context.Context, creatorID string) ([]domain.Content, error)
}

// DueQuery selects items for a sweep.
type DueQuery struct {
	Now   time.Time
	Limit int
	// IncludeFailed adds FAILED items with retry_count below MaxRetries.
	IncludeFailed bool
	MaxRetries    int
}

// ScheduleStore reads and writes scheduled_content. An empty creatorID means
// any owner.
type ScheduleStore interface {
	Create(ctx context.Context, item *domain.ScheduledItem) error
	// LockOwned reads the item with FOR UPDATE. Only meaningful inside WithTx.
	LockOwned(ctx context.Context, id, creatorID string) (*domain.ScheduledItem, error)
	HasActive(ctx context.Context, contentType domain.ContentType, contentID string) (bool, error)
	NextActive(ctx context.Context, contentType domain.ContentType, contentID string) (*time.Time, error)
	// Update and Delete only match PENDING or FAILED rows.
	Update(ctx context.Context, item *domain.ScheduledItem) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context, creatorID string) ([]domain.ScheduledItemView, error)

	FindDue(ctx context.Context, q DueQuery) ([]domain.ScheduledItemView, error)
	// ClaimPublished moves the item to PUBLISHED only if its status and
	// retry count are unchanged. It reports whether the claim won.
	ClaimPublished(ctx context.Context, id string, observed domain.ScheduleStatus, observedRetries int, note string) (bool, error)
	MarkFailed(ctx context.Context, id string, observed domain.ScheduleStatus, note string) error

	Upcoming(ctx context.Context, from, to time.Time, limit int) ([]domain.ScheduledItemView, error)
	RecentlyPublished(ctx context.Context, since time.Time, limit int) ([]domain.ScheduledItemView, error)
	CountPending(ctx context.Context, from time.Time) (int, error)
}

// CreatorLookup maps authenticated users to creator profiles.
type CreatorLookup interface {
	FindByUserID(ctx context.Context, userID string) (*domain.Creator, error)
}

// Stores gives access to the repositories bound to one connection or transaction.
type Stores interface {
	Content(contentType domain.ContentType) ContentStore
	Schedules() ScheduleStore
}

// Store is Stores plus transactions.
type Store interface {
	Stores
	// WithTx runs fn in a transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(Stores) error) error
}
