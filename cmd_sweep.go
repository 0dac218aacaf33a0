package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/trigger"
)

// runScheduler fires the publish sweep on the configured cron schedule until
// the process is signalled.
func runScheduler() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer a.close()

	t, err := newTrigger(a)
	if err != nil {
		a.log.Error("Failed to create sweep trigger", logger.Error(err))
		return 1
	}

	if err = t.Start(ctx); err != nil {
		a.log.Error("Failed to start sweep trigger", logger.Error(err))
		return 1
	}

	<-ctx.Done()
	a.log.Info("Shutdown requested")
	t.Stop()
	return 0
}

// runSweepOnce runs a single sweep, honouring the cross-replica lock, and
// exits. Suitable for an external cron or a Kubernetes CronJob.
func runSweepOnce() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer a.close()

	t, err := newTrigger(a)
	if err != nil {
		a.log.Error("Failed to create sweep trigger", logger.Error(err))
		return 1
	}

	result, err := t.RunOnce(ctx)
	if err != nil {
		a.log.Error("Sweep failed", logger.Error(err))
		return 1
	}
	if result == nil {
		return 0
	}

	a.log.Info("Sweep finished",
		logger.Int("processed", len(result.Processed)),
		logger.Int("published", result.PublishedCount),
		logger.Int("failed", result.FailedCount),
		logger.Int("skipped", result.SkippedCount),
	)
	return 0
}

func newTrigger(a *app) (*trigger.Trigger, error) {
	opts := []trigger.Option{trigger.WithRecorder(a.telemetry)}
	if a.redis != nil {
		opts = append(opts, trigger.WithLocker(
			trigger.NewRedisLocker(a.redis, a.cfg.Sweep.LockKey, a.cfg.Sweep.LockTTL),
		))
	}

	// A sweep must finish before its lock can expire.
	return trigger.New(trigger.Config{
		Spec:     a.cfg.Sweep.Cron,
		Location: a.cfg.Location(),
		Timeout:  a.cfg.Sweep.LockTTL,
	}, a.sweeper, a.log, opts...)
}
