package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// PostgresStore implements Store on a connection pool.
type PostgresStore struct {
	db *sqlx.DB
	stores
}

type stores struct {
	videos    *ContentRepository
	blogs     *ContentRepository
	schedules *ScheduleRepository
}

func newStores(q querier) stores {
	return stores{
		videos:    newContentRepository(q, domain.ContentTypeVideo),
		blogs:     newContentRepository(q, domain.ContentTypeBlog),
		schedules: &ScheduleRepository{q: q},
	}
}

func (s stores) Content(contentType domain.ContentType) ContentStore {
	if contentType == domain.ContentTypeBlog {
		return s.blogs
	}
	return s.videos
}

func (s stores) Schedules() ScheduleStore {
	return s.schedules
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, stores: newStores(db)}
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn against repositories bound to one transaction. Serialization
// failures from PostgreSQL surface as domain conflicts.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Stores) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(newStores(tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	committed = true
	return nil
}

var _ Store = (*PostgresStore)(nil)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// classify turns concurrency errors from PostgreSQL into domain conflicts.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation, pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%w: %w", domain.Conflict("the schedule was changed concurrently, please retry"), err)
	default:
		return err
	}
}

// ensure *sqlx.Tx satisfies querier alongside *sqlx.DB.
var (
	_ querier = (*sqlx.DB)(nil)
	_ querier = (*sqlx.Tx)(nil)
)
