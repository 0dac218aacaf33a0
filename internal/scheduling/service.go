// Package scheduling creates, changes and cancels scheduled publications.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/recurrence"
)

// Operation labels for Recorder.
const (
	OpSingle    = "single"
	OpRecurring = "recurring"
)

// Recorder receives scheduling metrics.
type Recorder interface {
	RecordSchedule(operation, outcome string)
	ObserveExpansion(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSchedule(string, string) {}
func (nopRecorder) ObserveExpansion(int)          {}

// Service implements the scheduling operations.
type Service struct {
	store    database.Store
	expander *recurrence.Expander
	logger   infralogger.Logger
	metrics  Recorder
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for item ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService creates a Service.
func NewService(store database.Store, expander *recurrence.Expander, log infralogger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		expander: expander,
		logger:   log,
		metrics:  nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func authorize(actor domain.Actor) error {
	if actor.UserID == "" {
		return domain.Unauthorized("Unauthorized")
	}
	if !actor.CanSchedule() {
		return domain.Forbidden("Insufficient permissions")
	}
	if !actor.IsAdmin() && actor.CreatorID == "" {
		return domain.NotFound("Creator profile not found")
	}
	return nil
}

// Schedule creates one PENDING item and marks its content SCHEDULED.
func (s *Service) Schedule(ctx context.Context, actor domain.Actor, req domain.ScheduleRequest) (*domain.ScheduledItem, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if req.ContentType == "" || req.ContentID == "" || req.PublishAt.IsZero() {
		return nil, domain.Validation("Content type, content ID, and publish date are required")
	}
	if !req.PublishAt.After(s.now()) {
		return nil, domain.Validation("Publish date must be in the future")
	}

	var item *domain.ScheduledItem
	err := s.store.WithTx(ctx, func(tx database.Stores) error {
		created, err := s.create(ctx, tx, actor, req.ContentType, req.ContentID, req.PublishAt, req.Notes, true)
		item = created
		return err
	})
	if err != nil {
		s.metrics.RecordSchedule(OpSingle, outcomeLabel(err))
		return nil, err
	}

	s.metrics.RecordSchedule(OpSingle, string(domain.OutcomeScheduled))
	s.logger.Info("Content scheduled",
		infralogger.String("schedule_id", item.ID),
		infralogger.String("content_type", string(item.ContentType)),
		infralogger.String("content_id", req.ContentID),
		infralogger.Time("publish_at", item.PublishAt),
	)
	return item, nil
}

// create runs the shared materialization effect inside tx: lock the content
// row, check ownership and status, insert the item and mirror scheduledAt.
func (s *Service) create(
	ctx context.Context, tx database.Stores, actor domain.Actor,
	ct domain.ContentType, contentID string, publishAt time.Time, notes string, checkActive bool,
) (*domain.ScheduledItem, error) {
	content, err := tx.Content(ct).Lock(ctx, contentID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !actor.Owns(content.CreatorID)) {
		return nil, domain.NotFound("Content not found or access denied")
	}
	if err != nil {
		return nil, err
	}
	if content.Status == domain.ContentStatusArchived {
		return nil, domain.Validation("Archived content cannot be scheduled")
	}

	if checkActive {
		active, err := tx.Schedules().HasActive(ctx, ct, contentID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, domain.Conflict("Content is already scheduled")
		}
	}

	item := domain.NewScheduledItem(s.newID(), ct, contentID, content.CreatorID, publishAt, notes)
	if err := tx.Schedules().Create(ctx, &item); err != nil {
		return nil, err
	}
	if err := tx.Content(ct).MarkScheduled(ctx, contentID, publishAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// ScheduleRecurring materializes every occurrence of req.Rule, cycling
// through req.ContentIDs. Each occurrence commits independently.
func (s *Service) ScheduleRecurring(ctx context.Context, actor domain.Actor, req domain.RecurringRequest) (*domain.BulkResult, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if len(req.ContentIDs) == 0 {
		return nil, domain.Validation("At least one content item is required")
	}

	dates, err := s.expander.Generate(req.Rule)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveExpansion(len(dates))
	if len(dates) == 0 {
		return nil, domain.Validation("No valid schedule dates generated")
	}

	notes := recurringNotes(req.Notes, req.Rule.Pattern)
	now := s.now()
	result := &domain.BulkResult{Outcomes: make([]domain.Outcome, 0, len(dates))}

	// Content with an active item before the batch is left alone; repeats
	// created by this batch are expected.
	preexisting := make(map[string]bool)
	resolved := make(map[string]*domain.Content)

	for i, publishAt := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		contentID := req.ContentIDs[i%len(req.ContentIDs)]
		outcome := domain.Outcome{ContentID: contentID, PublishAt: publishAt}

		content, err := s.resolve(ctx, actor, contentID, resolved)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			outcome.Kind, outcome.Reason = domain.OutcomeSkipped, "content not found or access denied"
		case err != nil:
			outcome.Kind, outcome.Reason = domain.OutcomeFailed, err.Error()
		case !publishAt.After(now):
			outcome.ContentType = content.Type
			outcome.Kind, outcome.Reason = domain.OutcomeSkipped, "occurrence is not in the future"
		default:
			outcome.ContentType = content.Type
			s.materialize(ctx, actor, content, publishAt, notes, preexisting, &outcome)
		}

		s.metrics.RecordSchedule(OpRecurring, string(outcome.Kind))
		result.Add(outcome)
	}

	s.logger.Info("Recurring schedule created",
		infralogger.String("pattern", string(req.Rule.Pattern)),
		infralogger.Int("occurrences", len(dates)),
		infralogger.Int("scheduled", result.ScheduledCount),
		infralogger.Int("skipped", result.SkippedCount),
		infralogger.Int("failed", result.FailedCount),
	)
	return result, nil
}

// resolve probes videos then blogs for contentID, caching the answer.
func (s *Service) resolve(ctx context.Context, actor domain.Actor, contentID string, cache map[string]*domain.Content) (*domain.Content, error) {
	if c, ok := cache[contentID]; ok {
		if c == nil {
			return nil, domain.ErrNotFound
		}
		return c, nil
	}

	for _, ct := range domain.ContentTypes {
		c, err := s.store.Content(ct).FindOwned(ctx, contentID, actor.OwnerFilter())
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cache[contentID] = c
		return c, nil
	}
	cache[contentID] = nil
	return nil, domain.ErrNotFound
}

func (s *Service) materialize(
	ctx context.Context, actor domain.Actor, content *domain.Content,
	publishAt time.Time, notes string, preexisting map[string]bool, outcome *domain.Outcome,
) {
	key := string(content.Type) + ":" + content.ID

	err := s.store.WithTx(ctx, func(tx database.Stores) error {
		if _, seen := preexisting[key]; !seen {
			active, err := tx.Schedules().HasActive(ctx, content.Type, content.ID)
			if err != nil {
				return err
			}
			preexisting[key] = active
		}
		if preexisting[key] {
			return domain.Conflict("Content is already scheduled")
		}

		item, err := s.create(ctx, tx, actor, content.Type, content.ID, publishAt, notes, false)
		if err != nil {
			return err
		}
		outcome.ItemID = item.ID
		return nil
	})

	switch {
	case err == nil:
		outcome.Kind = domain.OutcomeScheduled
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
		outcome.Kind, outcome.Reason = domain.OutcomeSkipped, domain.Message(err)
	default:
		outcome.Kind, outcome.Reason = domain.OutcomeFailed, err.Error()
		s.logger.Warn("Recurring occurrence failed",
			infralogger.String("content_id", content.ID),
			infralogger.Time("publish_at", publishAt),
			infralogger.Error(err),
		)
	}
}

func recurringNotes(notes string, pattern domain.Pattern) string {
	if strings.TrimSpace(notes) == "" {
		return fmt.Sprintf("Recurring %s", pattern)
	}
	return fmt.Sprintf("%s (Recurring %s)", notes, pattern)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return string(domain.OutcomeFailed)
	}
}
