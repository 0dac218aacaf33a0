// Package trigger runs the publish sweep on a cron schedule.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	infracontext "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/context"
	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	infraredis "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/redis"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const (
	// DefaultSpec runs the sweep every 15 minutes.
	DefaultSpec = "*/15 * * * *"
	// DefaultLockKey names the Redis key shared by all replicas.
	DefaultLockKey = "h3:sweep:lock"
	// DefaultLockTTL outlives any reasonable sweep.
	DefaultLockTTL = 5 * time.Minute
)

// ErrAlreadyStarted is returned by Start on a running Trigger.
var ErrAlreadyStarted = errors.New("trigger already started")

// Sweeper is the operation the trigger invokes.
type Sweeper interface {
	RunSweep(ctx context.Context, now time.Time) (*domain.SweepResult, error)
}

// Releaser releases a held lock.
type Releaser interface {
	Release(ctx context.Context) error
}

// Locker guards a run. TryLock returns nil, nil when another holder has it.
type Locker interface {
	TryLock(ctx context.Context) (Releaser, error)
}

// Recorder counts ticks skipped because the lock was held.
type Recorder interface {
	RecordTriggerSkipped()
}

type nopRecorder struct{}

func (nopRecorder) RecordTriggerSkipped() {}

// RedisLocker is a Locker backed by a Redis key.
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisLocker creates a RedisLocker. Empty key and zero ttl take defaults.
func NewRedisLocker(client redis.Cmdable, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryLock implements Locker.
func (l *RedisLocker) TryLock(ctx context.Context) (Releaser, error) {
	lock, err := infraredis.TryLock(ctx, l.client, l.key, l.ttl)
	if err != nil || lock == nil {
		return nil, err
	}
	return lock, nil
}

// Config configures a Trigger.
type Config struct {
	// Spec is a standard five-field cron expression.
	Spec     string
	Location *time.Location
	// Timeout bounds one sweep. Zero means no limit.
	Timeout time.Duration
}

// Trigger owns a cron runner with a single sweep job.
type Trigger struct {
	sweeper Sweeper
	locker  Locker
	metrics Recorder
	logger  infralogger.Logger
	now     func() time.Time
	timeout time.Duration
	spec    string

	cron    *cron.Cron
	entryID cron.EntryID

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithLocker serializes runs across replicas.
func WithLocker(l Locker) Option {
	return func(t *Trigger) { t.locker = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(t *Trigger) { t.metrics = r }
}

// WithClock replaces time.Now as the sweep reference time.
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) { t.now = now }
}

// New validates cfg.Spec and registers the sweep job. Nothing runs until Start.
func New(cfg Config, sweeper Sweeper, log infralogger.Logger, opts ...Option) (*Trigger, error) {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Spec); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cfg.Spec, err)
	}

	t := &Trigger{
		sweeper: sweeper,
		metrics: nopRecorder{},
		logger:  log,
		now:     time.Now,
		timeout: cfg.Timeout,
		spec:    cfg.Spec,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
	for _, opt := range opts {
		opt(t)
	}

	id, err := t.cron.AddFunc(cfg.Spec, t.tick)
	if err != nil {
		return nil, fmt.Errorf("register sweep job: %w", err)
	}
	t.entryID = id
	return t, nil
}

// Start begins firing the job. Runs in flight are cancelled through ctx.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return ErrAlreadyStarted
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.started = true
	t.cron.Start()

	t.logger.Info("Sweep trigger started",
		infralogger.String("schedule", t.spec),
		infralogger.Time("next_run", t.cron.Entry(t.entryID).Next),
	)
	return nil
}

// Stop cancels a running sweep and waits for it to return.
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	t.cancel()
	t.mu.Unlock()

	<-t.cron.Stop().Done()
	t.logger.Info("Sweep trigger stopped")
}

func (t *Trigger) tick() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := t.RunOnce(ctx); err != nil {
		t.logger.Error("Scheduled sweep failed", infralogger.Error(err))
	}
}

// RunOnce takes the lock, runs one sweep and releases the lock. It returns
// nil, nil when another replica holds the lock.
func (t *Trigger) RunOnce(ctx context.Context) (*domain.SweepResult, error) {
	if t.locker != nil {
		lock, err := t.locker.TryLock(ctx)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			t.metrics.RecordTriggerSkipped()
			t.logger.Info("Sweep skipped, lock held by another replica")
			return nil, nil
		}
		defer func() {
			if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
				t.logger.Warn("Failed to release sweep lock", infralogger.Error(relErr))
			}
		}()
	}

	runCtx, cancel := infracontext.WithOptionalTimeout(ctx, t.timeout)
	defer cancel()
	return t.sweeper.RunSweep(runCtx, t.now())
}
