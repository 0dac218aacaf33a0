// Package databasetest provides an in-memory database.Store for service tests.
package databasetest

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// Store is a database.Store kept in maps. Transactions run on a copy that
// replaces the live state on success, and are serialized.
type Store struct {
	mu    sync.Mutex
	state *state

	// Now stamps created_at and updated_at. Defaults to time.Now.
	Now func() time.Time
	// PublishErr fails Publish for the given content ids.
	PublishErr map[string]error
	// CreateErr fails every Create when set.
	CreateErr error
	// LostClaims makes ClaimPublished report a lost race for the given item ids.
	LostClaims map[string]bool
	// StaleLocks makes LockOwned return the given items as PENDING whatever
	// their stored status, as a read that raced a sweep claim would.
	StaleLocks map[string]bool
}

type state struct {
	content  map[domain.ContentType]map[string]domain.Content
	creators map[string]domain.Creator
	items    map[string]domain.ScheduledItem
}

func (s *state) clone() *state {
	c := &state{
		content:  make(map[domain.ContentType]map[string]domain.Content, len(s.content)),
		creators: maps.Clone(s.creators),
		items:    maps.Clone(s.items),
	}
	for ct, rows := range s.content {
		c.content[ct] = maps.Clone(rows)
	}
	return c
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: &state{
			content: map[domain.ContentType]map[string]domain.Content{
				domain.ContentTypeVideo: {},
				domain.ContentTypeBlog:  {},
			},
			creators: map[string]domain.Creator{},
			items:    map[string]domain.ScheduledItem{},
		},
		PublishErr: map[string]error{},
		LostClaims: map[string]bool{},
		StaleLocks: map[string]bool{},
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AddCreator seeds a creator profile.
func (s *Store) AddCreator(c domain.Creator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.creators[c.ID] = c
}

// AddContent seeds a video or blog. Status defaults to DRAFT.
func (s *Store) AddContent(ct domain.ContentType, c domain.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Type = ct
	if c.Status == "" {
		c.Status = domain.ContentStatusDraft
	}
	s.state.content[ct][c.ID] = c
}

// GetContent returns a copy of a content row.
func (s *Store) GetContent(ct domain.ContentType, id string) (domain.Content, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.content[ct][id]
	return c, ok
}

// Items returns every scheduled item ordered by publish time then id.
func (s *Store) Items() []domain.ScheduledItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := slices.Collect(maps.Values(s.state.items))
	slices.SortFunc(items, func(a, b domain.ScheduledItem) int {
		return cmp.Or(a.PublishAt.Compare(b.PublishAt), cmp.Compare(a.ID, b.ID))
	})
	return items
}

// ItemsFor returns the items referencing contentID.
func (s *Store) ItemsFor(contentID string) []domain.ScheduledItem {
	var out []domain.ScheduledItem
	for _, it := range s.Items() {
		if it.ContentID() == contentID {
			out = append(out, it)
		}
	}
	return out
}

// Content implements database.Stores.
func (s *Store) Content(ct domain.ContentType) database.ContentStore {
	return &contentRepo{store: s, ct: ct, view: s.live}
}

// Schedules implements database.Stores.
func (s *Store) Schedules() database.ScheduleStore {
	return &scheduleRepo{store: s, view: s.live}
}

// WithTx implements database.Store.
func (s *Store) WithTx(ctx context.Context, fn func(database.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	view := func() (*state, func()) { return work, func() {} }
	if err := fn(txStores{store: s, view: view}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// FindByUserID implements database.CreatorLookup.
func (s *Store) FindByUserID(_ context.Context, userID string) (*domain.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.creators {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

var (
	_ database.Store         = (*Store)(nil)
	_ database.CreatorLookup = (*Store)(nil)
)

// live locks the store for one call.
func (s *Store) live() (*state, func()) {
	s.mu.Lock()
	return s.state, s.mu.Unlock
}

type viewFunc func() (*state, func())

type txStores struct {
	store *Store
	view  viewFunc
}

func (t txStores) Content(ct domain.ContentType) database.ContentStore {
	return &contentRepo{store: t.store, ct: ct, view: t.view}
}

func (t txStores) Schedules() database.ScheduleStore {
	return &scheduleRepo{store: t.store, view: t.view}
}
