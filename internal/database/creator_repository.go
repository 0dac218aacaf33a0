package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// CreatorRepository resolves creator profiles.
type CreatorRepository struct {
	db *sqlx.DB
}

// NewCreatorRepository creates a repository on db.
func NewCreatorRepository(db *sqlx.DB) *CreatorRepository {
	return &CreatorRepository{db: db}
}

// FindByUserID returns domain.ErrNotFound when the user has no profile.
func (r *CreatorRepository) FindByUserID(ctx context.Context, userID string) (*domain.Creator, error) {
	var c domain.Creator
	err := getOne(ctx, r.db, &c, `SELECT id, user_id, display_name FROM creators WHERE user_id = $1`, userID)
	if err != nil {
		return nil, wrap("find creator", err)
	}
	return &c, nil
}
