package databasetest

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

type contentRepo struct {
	store *Store
	ct    domain.ContentType
	view  viewFunc
}

func (r *contentRepo) FindOwned(_ context.Context, id, creatorID string) (*domain.Content, error) {
	st, done := r.view()
	defer done()
	c, ok := st.content[r.ct][id]
	if !ok || (creatorID != "" && c.CreatorID != creatorID) {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *contentRepo) Lock(ctx context.Context, id string) (*domain.Content, error) {
	return r.FindOwned(ctx, id, "")
}

func (r *contentRepo) update(id string, fn func(*domain.Content) error) error {
	st, done := r.view()
	defer done()
	c, ok := st.content[r.ct][id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = r.store.now()
	st.content[r.ct][id] = c
	return nil
}

func (r *contentRepo) MarkScheduled(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(c *domain.Content) error {
		c.Status = domain.ContentStatusScheduled
		c.ScheduledAt = &at
		return nil
	})
}

func (r *contentRepo) SetScheduledAt(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(c *domain.Content) error {
		c.ScheduledAt = &at
		return nil
	})
}

func (r *contentRepo) ResetToDraft(_ context.Context, id string) error {
	return r.update(id, func(c *domain.Content) error {
		c.Status = domain.ContentStatusDraft
		c.ScheduledAt = nil
		return nil
	})
}

func (r *contentRepo) Publish(_ context.Context, id string, at time.Time) error {
	if err := r.store.PublishErr[id]; err != nil {
		return err
	}
	return r.update(id, func(c *domain.Content) error {
		if c.Status == domain.ContentStatusArchived {
			return domain.ErrNotFound
		}
		c.Status = domain.ContentStatusPublished
		c.PublishedAt = &at
		return nil
	})
}

func (r *contentRepo) ListAvailable(_ context.Context, creatorID string) ([]domain.Content, error) {
	st, done := r.view()
	defer done()

	out := make([]domain.Content, 0)
	for _, c := range st.content[r.ct] {
		if creatorID != "" && c.CreatorID != creatorID {
			continue
		}
		if c.Status != domain.ContentStatusDraft && c.Status != domain.ContentStatusPublished {
			continue
		}
		if hasActive(st, r.ct, c.ID) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Content) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func hasActive(st *state, ct domain.ContentType, contentID string) bool {
	for _, it := range st.items {
		if it.ContentType == ct && it.ContentID() == contentID && it.Status.IsActive() {
			return true
		}
	}
	return false
}

type scheduleRepo struct {
	store *Store
	view  viewFunc
}

func (r *scheduleRepo) Create(_ context.Context, item *domain.ScheduledItem) error {
	if r.store.CreateErr != nil {
		return r.store.CreateErr
	}
	st, done := r.view()
	defer done()
	now := r.store.now()
	item.CreatedAt, item.UpdatedAt = now, now
	st.items[item.ID] = *item
	return nil
}

func (r *scheduleRepo) LockOwned(_ context.Context, id, creatorID string) (*domain.ScheduledItem, error) {
	st, done := r.view()
	defer done()
	it, ok := st.items[id]
	if !ok || (creatorID != "" && it.CreatorID != creatorID) {
		return nil, domain.ErrNotFound
	}
	if r.store.StaleLocks[id] {
		it.Status = domain.ScheduleStatusPending
	}
	return &it, nil
}

func (r *scheduleRepo) NextActive(_ context.Context, ct domain.ContentType, contentID string) (*time.Time, error) {
	st, done := r.view()
	defer done()
	var next *time.Time
	for _, it := range st.items {
		if it.ContentType != ct || it.ContentID() != contentID || !it.Status.IsActive() {
			continue
		}
		if next == nil || it.PublishAt.Before(*next) {
			at := it.PublishAt
			next = &at
		}
	}
	return next, nil
}

func (r *scheduleRepo) HasActive(_ context.Context, ct domain.ContentType, contentID string) (bool, error) {
	st, done := r.view()
	defer done()
	return hasActive(st, ct, contentID), nil
}

func (r *scheduleRepo) Update(_ context.Context, item *domain.ScheduledItem) error {
	st, done := r.view()
	defer done()
	if cur, ok := st.items[item.ID]; !ok || !cur.Status.IsActive() {
		return domain.ErrNotFound
	}
	item.UpdatedAt = r.store.now()
	st.items[item.ID] = *item
	return nil
}

func (r *scheduleRepo) Delete(_ context.Context, id string) error {
	st, done := r.view()
	defer done()
	if cur, ok := st.items[id]; !ok || !cur.Status.IsActive() {
		return domain.ErrNotFound
	}
	delete(st.items, id)
	return nil
}

func (r *scheduleRepo) views(filter func(domain.ScheduledItem) bool, less func(a, b domain.ScheduledItem) int, limit int) []domain.ScheduledItemView {
	st, done := r.view()
	defer done()

	items := slices.Collect(maps.Values(st.items))
	items = slices.DeleteFunc(items, func(it domain.ScheduledItem) bool { return !filter(it) })
	slices.SortFunc(items, less)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]domain.ScheduledItemView, 0, len(items))
	for _, it := range items {
		v := domain.ScheduledItemView{ScheduledItem: it}
		if c, ok := st.content[it.ContentType][it.ContentID()]; ok {
			v.Title, v.ContentStatus = c.Title, c.Status
		}
		v.CreatorName = st.creators[it.CreatorID].DisplayName
		out = append(out, v)
	}
	return out
}

func byPublishAt(a, b domain.ScheduledItem) int {
	return cmp.Or(a.PublishAt.Compare(b.PublishAt), cmp.Compare(a.ID, b.ID))
}

func (r *scheduleRepo) ListActive(_ context.Context, creatorID string) ([]domain.ScheduledItemView, error) {
	return r.views(func(it domain.ScheduledItem) bool {
		return it.Status.IsActive() && (creatorID == "" || it.CreatorID == creatorID)
	}, byPublishAt, 0), nil
}

func (r *scheduleRepo) FindDue(_ context.Context, q database.DueQuery) ([]domain.ScheduledItemView, error) {
	return r.views(func(it domain.ScheduledItem) bool {
		if it.PublishAt.After(q.Now) {
			return false
		}
		return it.Status == domain.ScheduleStatusPending ||
			(q.IncludeFailed && it.Status == domain.ScheduleStatusFailed && it.RetryCount < q.MaxRetries)
	}, byPublishAt, q.Limit), nil
}

func (r *scheduleRepo) ClaimPublished(_ context.Context, id string, observed domain.ScheduleStatus, observedRetries int, note string) (bool, error) {
	if r.store.LostClaims[id] {
		return false, nil
	}
	st, done := r.view()
	defer done()
	it, ok := st.items[id]
	if !ok || it.Status != observed || it.RetryCount != observedRetries {
		return false, nil
	}
	it.Status = domain.ScheduleStatusPublished
	it.Notes = note
	it.UpdatedAt = r.store.now()
	st.items[id] = it
	return true, nil
}

func (r *scheduleRepo) MarkFailed(_ context.Context, id string, observed domain.ScheduleStatus, note string) error {
	st, done := r.view()
	defer done()
	it, ok := st.items[id]
	if !ok || it.Status != observed {
		return domain.ErrNotFound
	}
	it.Status = domain.ScheduleStatusFailed
	it.Notes = note
	it.RetryCount++
	it.UpdatedAt = r.store.now()
	st.items[id] = it
	return nil
}

func (r *scheduleRepo) Upcoming(_ context.Context, from, to time.Time, limit int) ([]domain.ScheduledItemView, error) {
	return r.views(func(it domain.ScheduledItem) bool {
		return it.Status == domain.ScheduleStatusPending && !it.PublishAt.Before(from) && !it.PublishAt.After(to)
	}, byPublishAt, limit), nil
}

func (r *scheduleRepo) RecentlyPublished(_ context.Context, since time.Time, limit int) ([]domain.ScheduledItemView, error) {
	return r.views(func(it domain.ScheduledItem) bool {
		return it.Status == domain.ScheduleStatusPublished && !it.UpdatedAt.Before(since)
	}, func(a, b domain.ScheduledItem) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	}, limit), nil
}

func (r *scheduleRepo) CountPending(_ context.Context, from time.Time) (int, error) {
	st, done := r.view()
	defer done()
	n := 0
	for _, it := range st.items {
		if it.Status == domain.ScheduleStatusPending && !it.PublishAt.Before(from) {
			n++
		}
	}
	return n, nil
}
