// Package sweep promotes due scheduled items to published and reports
// upcoming and recent publishing activity.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	infracontext "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/context"
	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const (
	defaultBatchSize      = 100
	defaultMaxRetries     = 3
	defaultUpcomingWindow = time.Hour
	defaultRecentWindow   = 24 * time.Hour
	defaultUpcomingLimit  = 5
	defaultRecentLimit    = 10
)

var (
	errContentMissing  = errors.New("content no longer exists")
	errContentArchived = errors.New("content is archived")
)

// Config tunes a sweep.
type Config struct {
	// BatchSize caps the items handled per run.
	BatchSize int
	// RetryFailed adds FAILED items with RetryCount below MaxRetries to the due set.
	RetryFailed bool
	MaxRetries  int
	// ItemTimeout bounds the transaction of one item. Zero disables it.
	ItemTimeout time.Duration

	UpcomingWindow time.Duration
	RecentWindow   time.Duration
	UpcomingLimit  int
	RecentLimit    int
}

// DefaultConfig returns the standard sweep settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:      defaultBatchSize,
		MaxRetries:     defaultMaxRetries,
		UpcomingWindow: defaultUpcomingWindow,
		RecentWindow:   defaultRecentWindow,
		UpcomingLimit:  defaultUpcomingLimit,
		RecentLimit:    defaultRecentLimit,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.UpcomingWindow <= 0 {
		c.UpcomingWindow = d.UpcomingWindow
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = d.UpcomingLimit
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = d.RecentLimit
	}
}

// Notifier announces publications once they are committed.
type Notifier interface {
	Announce(ctx context.Context, event domain.PublishedEvent) error
}

// Recorder receives sweep metrics.
type Recorder interface {
	RecordSweep(result *domain.SweepResult, duration time.Duration)
	RecordNotifyFailure()
}

type nopRecorder struct{}

func (nopRecorder) RecordSweep(*domain.SweepResult, time.Duration) {}
func (nopRecorder) RecordNotifyFailure()                           {}

// Service runs sweeps against a database.Store.
type Service struct {
	store    database.Store
	cfg      Config
	logger   infralogger.Logger
	tracer   trace.Tracer
	notifier Notifier
	metrics  Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier announces each publication.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a sweep Service. Zero config fields take defaults.
func NewService(store database.Store, cfg Config, log infralogger.Logger, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		store:   store,
		cfg:     cfg,
		logger:  log,
		tracer:  otel.Tracer("publish-sweep"),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSweep publishes every item due at now. Items are handled independently:
// one failing item is marked FAILED and the sweep continues.
func (s *Service) RunSweep(ctx context.Context, now time.Time) (*domain.SweepResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "sweep.run",
		trace.WithAttributes(attribute.String("now", now.UTC().Format(time.RFC3339))))
	defer span.End()

	due, err := s.store.Schedules().FindDue(ctx, database.DueQuery{
		Now:           now,
		Limit:         s.cfg.BatchSize,
		IncludeFailed: s.cfg.RetryFailed,
		MaxRetries:    s.cfg.MaxRetries,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find due items")
		s.metrics.RecordSweep(nil, time.Since(start))
		return nil, fmt.Errorf("find due items: %w", err)
	}

	result := &domain.SweepResult{
		Processed: make([]domain.SweepItemResult, 0, len(due)),
		Timestamp: now,
	}
	for i := range due {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.logger.Warn("Sweep interrupted",
				infralogger.Int("remaining", len(due)-i),
				infralogger.Error(ctxErr),
			)
			s.metrics.RecordSweep(result, time.Since(start))
			return result, ctxErr
		}
		result.Record(s.publishOne(ctx, now, &due[i]))
	}

	span.SetAttributes(
		attribute.Int("published", result.PublishedCount),
		attribute.Int("failed", result.FailedCount),
		attribute.Int("skipped", result.SkippedCount),
	)
	s.metrics.RecordSweep(result, time.Since(start))
	if result.Total() > 0 {
		s.logger.Info("Sweep completed",
			infralogger.Int("published", result.PublishedCount),
			infralogger.Int("failed", result.FailedCount),
			infralogger.Int("skipped", result.SkippedCount),
			infralogger.Duration("duration", time.Since(start)),
		)
	}
	return result, nil
}

func (s *Service) publishOne(ctx context.Context, now time.Time, item *domain.ScheduledItemView) domain.SweepItemResult {
	ctx, span := s.tracer.Start(ctx, "sweep.publish",
		trace.WithAttributes(
			attribute.String("schedule_id", item.ID),
			attribute.String("content_type", string(item.ContentType)),
			attribute.String("content_id", item.ContentID()),
		))
	defer span.End()

	res := domain.SweepItemResult{ID: item.ID, ContentType: item.ContentType, Title: item.Title}
	note := "Auto-published at " + now.UTC().Format(time.RFC3339)

	itemCtx, cancel := infracontext.WithOptionalTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	claimed := false
	err := s.store.WithTx(itemCtx, func(tx database.Stores) error {
		won, claimErr := tx.Schedules().ClaimPublished(itemCtx, item.ID, item.Status, item.RetryCount, note)
		if claimErr != nil {
			return fmt.Errorf("claim item: %w", claimErr)
		}
		if !won {
			return nil
		}
		claimed = true
		content := tx.Content(item.ContentType)
		current, lockErr := content.Lock(itemCtx, item.ContentID())
		switch {
		case errors.Is(lockErr, domain.ErrNotFound):
			return errContentMissing
		case lockErr != nil:
			return fmt.Errorf("lock content: %w", lockErr)
		case current.Status == domain.ContentStatusArchived:
			return errContentArchived
		}
		if pubErr := content.Publish(itemCtx, item.ContentID(), now); pubErr != nil {
			return fmt.Errorf("publish content: %w", pubErr)
		}
		return nil
	})

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		res.Status, res.Error = domain.SweepFailed, err.Error()
		s.markFailed(ctx, item, err)
	case !claimed:
		res.Status = domain.SweepSkipped
		s.logger.Debug("Item claimed by another sweep", infralogger.String("schedule_id", item.ID))
	default:
		res.Status = domain.SweepPublished
		s.logger.Info("Content auto-published",
			infralogger.String("schedule_id", item.ID),
			infralogger.String("content_type", string(item.ContentType)),
			infralogger.String("content_id", item.ContentID()),
		)
		s.announce(ctx, now, item)
	}
	return res
}

func (s *Service) markFailed(ctx context.Context, item *domain.ScheduledItemView, cause error) {
	note := "Auto-publish failed: " + cause.Error()
	if err := s.store.Schedules().MarkFailed(ctx, item.ID, item.Status, note); err != nil {
		s.logger.Error("Failed to mark item as failed",
			infralogger.String("schedule_id", item.ID),
			infralogger.Error(err),
		)
		return
	}
	s.logger.Warn("Auto-publish failed",
		infralogger.String("schedule_id", item.ID),
		infralogger.Int("retry_count", item.RetryCount+1),
		infralogger.Error(cause),
	)
}

func (s *Service) announce(ctx context.Context, now time.Time, item *domain.ScheduledItemView) {
	if s.notifier == nil {
		return
	}
	event := domain.PublishedEvent{
		ScheduleID:  item.ID,
		ContentID:   item.ContentID(),
		ContentType: item.ContentType,
		CreatorID:   item.CreatorID,
		Title:       item.Title,
		PublishedAt: now,
	}
	if err := s.notifier.Announce(ctx, event); err != nil {
		s.metrics.RecordNotifyFailure()
		s.logger.Warn("Failed to announce publication",
			infralogger.String("schedule_id", item.ID),
			infralogger.Error(err),
		)
	}
}

// UpcomingAndRecent reports the items due within the upcoming window, the
// items published within the recent window and the pending total.
func (s *Service) UpcomingAndRecent(ctx context.Context, now time.Time) (*domain.ActivityReport, error) {
	schedules := s.store.Schedules()

	upcoming, err := schedules.Upcoming(ctx, now, now.Add(s.cfg.UpcomingWindow), s.cfg.UpcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}
	recent, err := schedules.RecentlyPublished(ctx, now.Add(-s.cfg.RecentWindow), s.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recently published: %w", err)
	}
	pending, err := schedules.CountPending(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	return &domain.ActivityReport{
		Upcoming:          toEntries(upcoming),
		RecentlyPublished: toEntries(recent),
		TotalPending:      pending,
		SystemStatus:      domain.SystemStatusOperational,
		LastCheck:         now,
	}, nil
}

func toEntries(views []domain.ScheduledItemView) []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, 0, len(views))
	for i := range views {
		v := &views[i]
		out = append(out, domain.ActivityEntry{
			ID:          v.ID,
			ContentType: v.ContentType,
			Title:       v.Title,
			PublishAt:   v.PublishAt,
			Status:      v.Status,
			Creator:     v.CreatorName,
			UpdatedAt:   v.UpdatedAt,
		})
	}
	return out
}
