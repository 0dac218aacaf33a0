package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("schedule: %w", domain.Conflict("content %s is already scheduled", "v1"))

	require.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "content v1 is already scheduled", domain.Message(err))
	assert.Empty(t, domain.Message(errors.New("boom")))
}

func TestParseContentType(t *testing.T) {
	t.Parallel()

	ct, err := domain.ParseContentType("video")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeVideo, ct)

	ct, err = domain.ParseContentType(" BLOG ")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeBlog, ct)

	_, err = domain.ParseContentType("podcast")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewScheduledItem_SetsMatchingReference(t *testing.T) {
	t.Parallel()

	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	video := domain.NewScheduledItem("s1", domain.ContentTypeVideo, "v1", "c1", at, "")
	require.NotNil(t, video.VideoID)
	assert.Nil(t, video.BlogID)
	assert.Equal(t, "v1", video.ContentID())
	assert.Equal(t, domain.ScheduleStatusPending, video.Status)

	blog := domain.NewScheduledItem("s2", domain.ContentTypeBlog, "b1", "c1", at, "")
	assert.Nil(t, blog.VideoID)
	assert.Equal(t, "b1", blog.ContentID())
}

func TestActor(t *testing.T) {
	t.Parallel()

	creator := domain.Actor{UserID: "u1", Role: domain.RoleCreator, CreatorID: "c1"}
	admin := domain.Actor{UserID: "u2", Role: domain.RoleSuperAdmin}
	system := domain.Actor{UserID: "cron", Role: domain.RoleSystem}

	assert.Equal(t, "c1", creator.OwnerFilter())
	assert.Empty(t, admin.OwnerFilter())
	assert.True(t, creator.Owns("c1"))
	assert.False(t, creator.Owns("c2"))
	assert.True(t, admin.Owns("c2"))
	assert.False(t, system.CanSchedule())
	assert.False(t, domain.Actor{Role: domain.RoleCreator}.Owns(""))
}

func TestRecurrenceRuleValidate(t *testing.T) {
	t.Parallel()

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	base := domain.RecurrenceRule{StartDate: start, Pattern: domain.PatternDaily, Interval: 1, Time: "09:00", EndType: domain.EndNever}

	tests := []struct {
		name   string
		mutate func(*domain.RecurrenceRule)
		ok     bool
	}{
		{"valid daily", func(*domain.RecurrenceRule) {}, true},
		{"bad time", func(r *domain.RecurrenceRule) { r.Time = "25:00" }, false},
		{"zero interval", func(r *domain.RecurrenceRule) { r.Interval = 0 }, false},
		{"weekly without weekdays", func(r *domain.RecurrenceRule) { r.Pattern = domain.PatternWeekly }, false},
		{"weekly out of range", func(r *domain.RecurrenceRule) {
			r.Pattern = domain.PatternWeekly
			r.Weekdays = []int{7}
		}, false},
		{"monthly without day", func(r *domain.RecurrenceRule) { r.Pattern = domain.PatternMonthly }, false},
		{"monthly with day", func(r *domain.RecurrenceRule) {
			r.Pattern = domain.PatternMonthly
			r.MonthDay = 31
		}, true},
		{"unknown pattern", func(r *domain.RecurrenceRule) { r.Pattern = "yearly" }, false},
		{"after with default count", func(r *domain.RecurrenceRule) { r.EndType = domain.EndAfter }, true},
		{"after negative", func(r *domain.RecurrenceRule) {
			r.EndType = domain.EndAfter
			r.EndCount = -1
		}, false},
		{"on without date", func(r *domain.RecurrenceRule) { r.EndType = domain.EndOn }, false},
		{"missing start", func(r *domain.RecurrenceRule) { r.StartDate = time.Time{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule := base
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestResultCounters(t *testing.T) {
	t.Parallel()

	var bulk domain.BulkResult
	bulk.Add(domain.Outcome{Kind: domain.OutcomeScheduled})
	bulk.Add(domain.Outcome{Kind: domain.OutcomeSkipped})
	bulk.Add(domain.Outcome{Kind: domain.OutcomeFailed})
	bulk.Add(domain.Outcome{Kind: domain.OutcomeScheduled})
	assert.Equal(t, 2, bulk.ScheduledCount)
	assert.Equal(t, 1, bulk.SkippedCount)
	assert.Equal(t, 1, bulk.FailedCount)

	var sweep domain.SweepResult
	sweep.Record(domain.SweepItemResult{Status: domain.SweepPublished})
	sweep.Record(domain.SweepItemResult{Status: domain.SweepSkipped})
	assert.Equal(t, 2, sweep.Total())
	assert.Equal(t, 1, sweep.PublishedCount)
	assert.Equal(t, 1, sweep.SkippedCount)
}
