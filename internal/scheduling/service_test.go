package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database/databasetest"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/recurrence"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/scheduling"
)

var now = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	maya  = domain.Actor{UserID: "u-maya", Role: domain.RoleCreator, CreatorID: "c-maya"}
	jon   = domain.Actor{UserID: "u-jon", Role: domain.RoleCreator, CreatorID: "c-jon"}
	admin = domain.Actor{UserID: "u-admin", Role: domain.RoleSuperAdmin}
)

type fixture struct {
	store   *databasetest.Store
	service *scheduling.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := databasetest.New()
	store.Now = func() time.Time { return now }
	store.AddCreator(domain.Creator{ID: "c-maya", UserID: "u-maya", DisplayName: "Maya"})
	store.AddCreator(domain.Creator{ID: "c-jon", UserID: "u-jon", DisplayName: "Jon"})
	store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "v1", CreatorID: "c-maya", Title: "Pilot", CreatedAt: now.Add(-2 * time.Hour)})
	store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "v2", CreatorID: "c-maya", Title: "Episode 2", CreatedAt: now.Add(-time.Hour)})
	store.AddContent(domain.ContentTypeBlog, domain.Content{ID: "b1", CreatorID: "c-maya", Title: "Behind the scenes"})
	store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "vj", CreatorID: "c-jon", Title: "Jon's video"})
	store.AddContent(domain.ContentTypeVideo, domain.Content{ID: "va", CreatorID: "c-maya", Title: "Old", Status: domain.ContentStatusArchived})

	seq := 0
	service := scheduling.NewService(store, recurrence.NewExpander(), infralogger.NewNop(),
		scheduling.WithClock(func() time.Time { return now }),
		scheduling.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("s%02d", seq)
		}),
	)
	return &fixture{store: store, service: service}
}

func TestSchedule_CreatesItemAndMirrorsContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	publishAt := now.Add(time.Hour)

	item, err := f.service.Schedule(context.Background(), maya, domain.ScheduleRequest{
		ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: publishAt, Notes: "launch",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ScheduleStatusPending, item.Status)
	assert.Equal(t, "c-maya", item.CreatorID)
	assert.Equal(t, "launch", item.Notes)

	items := f.store.ItemsFor("v1")
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
	assert.Equal(t, domain.ContentStatusScheduled, content.Status)
	require.NotNil(t, content.ScheduledAt)
	assert.Equal(t, publishAt, *content.ScheduledAt)
}

func TestSchedule_Rejections(t *testing.T) {
	t.Parallel()

	future := now.Add(time.Hour)
	tests := []struct {
		name    string
		actor   domain.Actor
		req     domain.ScheduleRequest
		wantErr error
	}{
		{"past publish date", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now.Add(-time.Hour)}, domain.ErrValidation},
		{"publish date equal to now", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now}, domain.ErrValidation},
		{"missing content id", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, PublishAt: future}, domain.ErrValidation},
		{"missing publish date", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "v1"}, domain.ErrValidation},
		{"content of another creator", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "vj", PublishAt: future}, domain.ErrNotFound},
		{"wrong content type", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeBlog, ContentID: "v1", PublishAt: future}, domain.ErrNotFound},
		{"archived content", maya, domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "va", PublishAt: future}, domain.ErrValidation},
		{"anonymous", domain.Actor{}, domain.ScheduleRequest{}, domain.ErrUnauthorized},
		{"system role", domain.Actor{UserID: "cron", Role: domain.RoleSystem}, domain.ScheduleRequest{}, domain.ErrForbidden},
		{"creator without profile", domain.Actor{UserID: "u-x", Role: domain.RoleCreator}, domain.ScheduleRequest{}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			_, err := f.service.Schedule(context.Background(), tt.actor, tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.NotEmpty(t, domain.Message(err))
			assert.Empty(t, f.store.Items(), "no item may be created on rejection")
		})
	}
}

func TestSchedule_DuplicateIsConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	req := domain.ScheduleRequest{ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now.Add(time.Hour)}

	_, err := f.service.Schedule(context.Background(), maya, req)
	require.NoError(t, err)

	req.PublishAt = now.Add(2 * time.Hour)
	_, err = f.service.Schedule(context.Background(), maya, req)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, f.store.ItemsFor("v1"), 1)
}

func TestSchedule_AdminActsForOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	item, err := f.service.Schedule(context.Background(), admin, domain.ScheduleRequest{
		ContentType: domain.ContentTypeVideo, ContentID: "vj", PublishAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "c-jon", item.CreatorID)
}

func TestCancel_ResetsContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.service.Schedule(ctx, maya, domain.ScheduleRequest{
		ContentType: domain.ContentTypeBlog, ContentID: "b1", PublishAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Cancel(ctx, jon, item.ID), domain.ErrNotFound)
	require.NoError(t, f.service.Cancel(ctx, maya, item.ID))

	assert.Empty(t, f.store.ItemsFor("b1"))
	content, _ := f.store.GetContent(domain.ContentTypeBlog, "b1")
	assert.Equal(t, domain.ContentStatusDraft, content.Status)
	assert.Nil(t, content.ScheduledAt)

	require.ErrorIs(t, f.service.Cancel(ctx, maya, item.ID), domain.ErrNotFound)
}

func TestCancel_KeepsContentScheduledWhileItemsRemain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ScheduleRecurring(ctx, maya, domain.RecurringRequest{
		ContentIDs: []string{"v1"},
		Rule:       recurringRule(3),
	})
	require.NoError(t, err)
	items := f.store.ItemsFor("v1")
	require.Len(t, items, 3)

	require.NoError(t, f.service.Cancel(ctx, maya, items[0].ID))
	content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
	assert.Equal(t, domain.ContentStatusScheduled, content.Status)
	require.NotNil(t, content.ScheduledAt)
	assert.Equal(t, items[1].PublishAt, *content.ScheduledAt)

	require.NoError(t, f.service.Cancel(ctx, maya, items[1].ID))
	require.NoError(t, f.service.Cancel(ctx, maya, items[2].ID))
	content, _ = f.store.GetContent(domain.ContentTypeVideo, "v1")
	assert.Equal(t, domain.ContentStatusDraft, content.Status)
	assert.Nil(t, content.ScheduledAt)
}

// publishDirectly claims the item the way a sweep does, outside the service.
func publishDirectly(t *testing.T, f *fixture, item *domain.ScheduledItem) {
	t.Helper()
	won, err := f.store.Schedules().ClaimPublished(context.Background(), item.ID, item.Status, item.RetryCount, "Auto-published")
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, f.store.Content(item.ContentType).Publish(context.Background(), item.ContentID(), now))
}

func TestPublishedItemsAreImmutable(t *testing.T) {
	t.Parallel()

	updateNotes := func(f *fixture, id string) error {
		notes := "too late"
		_, err := f.service.Update(context.Background(), maya, id, domain.UpdateRequest{Notes: &notes})
		return err
	}
	cancel := func(f *fixture, id string) error {
		return f.service.Cancel(context.Background(), maya, id)
	}

	tests := []struct {
		name    string
		stale   bool // the item read raced the sweep claim
		act     func(f *fixture, id string) error
		wantErr error
	}{
		{
			name:    "update rejected",
			act:     updateNotes,
			wantErr: domain.ErrValidation,
		},
		{
			name:    "cancel rejected",
			act:     cancel,
			wantErr: domain.ErrValidation,
		},
		{
			name:    "update racing the sweep conflicts",
			stale:   true,
			act:     updateNotes,
			wantErr: domain.ErrConflict,
		},
		{
			name:    "cancel racing the sweep conflicts",
			stale:   true,
			act:     cancel,
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			item, err := f.service.Schedule(context.Background(), maya, domain.ScheduleRequest{
				ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now.Add(time.Hour),
			})
			require.NoError(t, err)
			publishDirectly(t, f, item)
			if tt.stale {
				f.store.StaleLocks[item.ID] = true
			}

			require.ErrorIs(t, tt.act(f, item.ID), tt.wantErr)

			items := f.store.ItemsFor("v1")
			require.Len(t, items, 1)
			assert.Equal(t, domain.ScheduleStatusPublished, items[0].Status)
			assert.Equal(t, "Auto-published", items[0].Notes)
			content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
			assert.Equal(t, domain.ContentStatusPublished, content.Status)
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ptr := func(v time.Time) *time.Time { return &v }
	status := func(s domain.ScheduleStatus) *domain.ScheduleStatus { return &s }
	notes := "rescheduled"

	tests := []struct {
		name    string
		actor   domain.Actor
		req     domain.UpdateRequest
		wantErr error
		check   func(t *testing.T, f *fixture, item *domain.ScheduledItem)
	}{
		{
			name:  "moves publish time and mirrors content",
			actor: maya,
			req:   domain.UpdateRequest{PublishAt: ptr(now.Add(3 * time.Hour)), Notes: &notes},
			check: func(t *testing.T, f *fixture, item *domain.ScheduledItem) {
				assert.Equal(t, now.Add(3*time.Hour), item.PublishAt)
				assert.Equal(t, "rescheduled", item.Notes)
				content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
				assert.Equal(t, now.Add(3*time.Hour), *content.ScheduledAt)
			},
		},
		{
			name:  "notes only keeps content untouched",
			actor: maya,
			req:   domain.UpdateRequest{Notes: &notes},
			check: func(t *testing.T, f *fixture, _ *domain.ScheduledItem) {
				content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
				assert.Equal(t, now.Add(time.Hour), *content.ScheduledAt)
			},
		},
		{name: "empty update", actor: maya, req: domain.UpdateRequest{}, wantErr: domain.ErrValidation},
		{name: "past publish time", actor: maya, req: domain.UpdateRequest{PublishAt: ptr(now.Add(-time.Minute))}, wantErr: domain.ErrValidation},
		{name: "status published", actor: maya, req: domain.UpdateRequest{Status: status(domain.ScheduleStatusPublished)}, wantErr: domain.ErrValidation},
		{name: "not owner", actor: jon, req: domain.UpdateRequest{Notes: &notes}, wantErr: domain.ErrNotFound},
		{name: "admin may update", actor: admin, req: domain.UpdateRequest{Status: status(domain.ScheduleStatusFailed)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()

			created, err := f.service.Schedule(ctx, maya, domain.ScheduleRequest{
				ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now.Add(time.Hour),
			})
			require.NoError(t, err)

			updated, err := f.service.Update(ctx, tt.actor, created.ID, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, f, updated)
			}
		})
	}
}

func recurringRule(count int) domain.RecurrenceRule {
	return domain.RecurrenceRule{
		StartDate: now.AddDate(0, 0, 1),
		Pattern:   domain.PatternDaily,
		Interval:  1,
		Time:      "09:00",
		EndType:   domain.EndAfter,
		EndCount:  count,
	}
}

func TestScheduleRecurring_RoundRobinSkipsForeignContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result, err := f.service.ScheduleRecurring(context.Background(), maya, domain.RecurringRequest{
		ContentIDs: []string{"v1", "vj"},
		Rule:       recurringRule(5),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ScheduledCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Zero(t, result.FailedCount)

	gotOrder := make([]string, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		gotOrder = append(gotOrder, o.ContentID+":"+string(o.Kind))
	}
	assert.Equal(t, []string{"v1:scheduled", "vj:skipped", "v1:scheduled", "vj:skipped", "v1:scheduled"}, gotOrder)

	items := f.store.ItemsFor("v1")
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, "Recurring daily", it.Notes)
		assert.Equal(t, 9, it.PublishAt.Hour())
	}
	assert.Empty(t, f.store.ItemsFor("vj"))

	content, _ := f.store.GetContent(domain.ContentTypeVideo, "v1")
	assert.Equal(t, domain.ContentStatusScheduled, content.Status)
	assert.Equal(t, items[2].PublishAt, *content.ScheduledAt)
}

func TestScheduleRecurring_ProbesContentType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result, err := f.service.ScheduleRecurring(context.Background(), maya, domain.RecurringRequest{
		ContentIDs: []string{"v2", "b1"},
		Rule:       recurringRule(4),
		Notes:      "series",
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.ScheduledCount)

	assert.Equal(t, domain.ContentTypeVideo, result.Outcomes[0].ContentType)
	assert.Equal(t, domain.ContentTypeBlog, result.Outcomes[1].ContentType)

	blogs := f.store.ItemsFor("b1")
	require.Len(t, blogs, 2)
	assert.Equal(t, "series (Recurring daily)", blogs[0].Notes)
	require.NotNil(t, blogs[0].BlogID)
	assert.Nil(t, blogs[0].VideoID)
}

func TestScheduleRecurring_SkipsContentAlreadyScheduled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Schedule(ctx, maya, domain.ScheduleRequest{
		ContentType: domain.ContentTypeVideo, ContentID: "v1", PublishAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	result, err := f.service.ScheduleRecurring(ctx, maya, domain.RecurringRequest{
		ContentIDs: []string{"v1", "v2"},
		Rule:       recurringRule(4),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ScheduledCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Len(t, f.store.ItemsFor("v1"), 1)
	assert.Len(t, f.store.ItemsFor("v2"), 2)
}

func TestScheduleRecurring_SkipsPastOccurrences(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rule := recurringRule(3)
	rule.StartDate = now.AddDate(0, 0, -1)

	result, err := f.service.ScheduleRecurring(context.Background(), maya, domain.RecurringRequest{
		ContentIDs: []string{"v1"},
		Rule:       rule,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, result.Outcomes[0].Kind)
	assert.Equal(t, 2, result.ScheduledCount)
}

func TestScheduleRecurring_StoreErrorsAreReportedPerItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.CreateErr = errors.New("connection reset")

	result, err := f.service.ScheduleRecurring(context.Background(), maya, domain.RecurringRequest{
		ContentIDs: []string{"v1", "b1"},
		Rule:       recurringRule(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.FailedCount)
	assert.Contains(t, result.Outcomes[0].Reason, "connection reset")
	assert.Empty(t, f.store.Items())
}

func TestScheduleRecurring_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ScheduleRecurring(ctx, maya, domain.RecurringRequest{Rule: recurringRule(3)})
	require.ErrorIs(t, err, domain.ErrValidation)

	bad := recurringRule(3)
	bad.Interval = 0
	_, err = f.service.ScheduleRecurring(ctx, maya, domain.RecurringRequest{ContentIDs: []string{"v1"}, Rule: bad})
	require.ErrorIs(t, err, domain.ErrValidation)

	empty := recurringRule(3)
	empty.EndType = domain.EndOn
	end := now.AddDate(0, 0, -5)
	empty.EndDate = &end
	_, err = f.service.ScheduleRecurring(ctx, maya, domain.RecurringRequest{ContentIDs: []string{"v1"}, Rule: empty})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "No valid schedule dates generated", domain.Message(err))
}

func TestListAndAvailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Schedule(ctx, maya, domain.ScheduleRequest{
		ContentType: domain.ContentTypeVideo, ContentID: "v2", PublishAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.service.Schedule(ctx, jon, domain.ScheduleRequest{
		ContentType: domain.ContentTypeVideo, ContentID: "vj", PublishAt: now.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	list, err := f.service.List(ctx, maya)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Episode 2", list[0].Title)

	all, err := f.service.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "vj", all[0].ContentID())

	available, err := f.service.Available(ctx, maya)
	require.NoError(t, err)
	require.Len(t, available.Videos, 1)
	assert.Equal(t, "v1", available.Videos[0].ID)
	require.Len(t, available.Blogs, 1)
}
