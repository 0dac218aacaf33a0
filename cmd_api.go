package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/api"
)

func runAPIServer() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer a.close()

	router := api.NewRouter(a.cfg, api.Dependencies{
		Scheduler: a.scheduler,
		Sweeper:   a.sweeper,
		Creators:  a.creators,
		Metrics:   a.telemetry.Handler(),
		DBPing:    a.store.Ping,
		RedisPing: a.redisPing(),
	})

	a.log.Info("Starting scheduler API",
		logger.String("version", version),
		logger.Int("port", a.cfg.Service.Port),
		logger.String("timezone", a.cfg.Service.Timezone),
	)

	if err = router.NewServer(a.log).Run(ctx); err != nil {
		a.log.Error("Server error", logger.Error(err))
		return 1
	}

	a.log.Info("Scheduler API exited cleanly")
	return 0
}
