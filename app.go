package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	infraconfig "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/config"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/profiling"
	infraredis "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/redis"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/retry"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/config"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/notify"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/recurrence"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/scheduling"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/sweep"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/telemetry"
)

// app holds the process-wide dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	db        *sqlx.DB
	redis     *goredis.Client
	profiler  *profiling.Profiler
	store     *database.PostgresStore
	creators  *database.CreatorRepository
	telemetry *telemetry.Provider
	scheduler *scheduling.Service
	sweeper   *sweep.Service
}

// bootstrap loads configuration and connects every backing service.
// The returned app must be closed by the caller.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := createLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	a.profiler, err = profiling.Start(cfg.Profiling, cfg.Service.Name, cfg.Service.Version, log)
	if err != nil {
		log.Warn("Profiling disabled", logger.Error(err))
	}

	a.db, err = database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)

	if cfg.Redis.Enabled {
		a.redis, err = infraredis.NewClient(ctx, infraredis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("Redis connected", logger.String("address", cfg.Redis.Address))
	}

	a.store = database.NewStore(a.db)
	a.creators = database.NewCreatorRepository(a.db)
	a.telemetry = telemetry.NewProvider(nil)

	expander := recurrence.NewExpander(
		recurrence.WithMaxIterations(cfg.Scheduling.MaxIterations),
		recurrence.WithDefaultEndCount(cfg.Scheduling.DefaultEndCount),
		recurrence.WithLocation(cfg.Location()),
	)
	a.scheduler = scheduling.NewService(a.store, expander, log,
		scheduling.WithRecorder(a.telemetry),
	)

	sweepOpts := []sweep.Option{
		sweep.WithRecorder(a.telemetry),
		sweep.WithTracer(a.telemetry.Tracer),
	}
	if a.redis != nil {
		notifier, notifyErr := notify.NewRedisNotifier(a.redis, cfg.Redis.EventsChannel, retry.DefaultConfig(), log)
		if notifyErr != nil {
			a.close()
			return nil, fmt.Errorf("create notifier: %w", notifyErr)
		}
		sweepOpts = append(sweepOpts, sweep.WithNotifier(notifier))
	}
	a.sweeper = sweep.NewService(a.store, sweep.Config{
		BatchSize:      cfg.Sweep.BatchSize,
		RetryFailed:    cfg.Sweep.RetryFailed,
		MaxRetries:     cfg.Sweep.MaxRetries,
		ItemTimeout:    cfg.Sweep.ItemTimeout,
		UpcomingWindow: cfg.Sweep.UpcomingWindow,
		RecentWindow:   cfg.Sweep.RecentWindow,
	}, log, sweepOpts...)

	return a, nil
}

// redisPing is nil when Redis is disabled so the health check skips it.
func (a *app) redisPing() func(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	}
}

func (a *app) close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.profiler != nil {
		errs = append(errs, a.profiler.Stop())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Shutdown cleanup failed", logger.Error(err))
	}
	_ = a.log.Sync()
}

// loadConfig reads the file named by CONFIG_PATH, defaulting to config.yml.
func loadConfig() (*config.Config, error) {
	configPath := infraconfig.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}
