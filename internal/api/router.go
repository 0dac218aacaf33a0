// Package api exposes the scheduler over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/gin"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/jwt"
	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/config"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/scheduling"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	healthCheckTimeout  = 2 * time.Second
)

// Scheduler is the scheduling surface used by the handlers.
type Scheduler interface {
	Schedule(ctx context.Context, actor domain.Actor, req domain.ScheduleRequest) (*domain.ScheduledItem, error)
	ScheduleRecurring(ctx context.Context, actor domain.Actor, req domain.RecurringRequest) (*domain.BulkResult, error)
	Update(ctx context.Context, actor domain.Actor, id string, req domain.UpdateRequest) (*domain.ScheduledItem, error)
	Cancel(ctx context.Context, actor domain.Actor, id string) error
	List(ctx context.Context, actor domain.Actor) ([]domain.ScheduledItemView, error)
	Available(ctx context.Context, actor domain.Actor) (*scheduling.AvailableContent, error)
}

// Sweeper is the publish sweep surface used by the handlers.
type Sweeper interface {
	RunSweep(ctx context.Context, now time.Time) (*domain.SweepResult, error)
	UpcomingAndRecent(ctx context.Context, now time.Time) (*domain.ActivityReport, error)
}

// Dependencies are the collaborators of the router. Pings and Metrics are optional.
type Dependencies struct {
	Scheduler Scheduler
	Sweeper   Sweeper
	Creators  database.CreatorLookup
	Clock     func() time.Time
	Metrics   http.Handler
	DBPing    func(ctx context.Context) error
	RedisPing func(ctx context.Context) error
}

// Router holds the API dependencies.
type Router struct {
	deps     Dependencies
	cfg      *config.Config
	location *time.Location
	logger   infralogger.Logger
}

// NewRouter creates a Router.
func NewRouter(cfg *config.Config, deps Dependencies) *Router {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Router{
		deps:     deps,
		cfg:      cfg,
		location: cfg.Location(),
		logger:   infralogger.NewNop(),
	}
}

// NewServer builds the HTTP server with health, metrics and API routes.
func (r *Router) NewServer(log infralogger.Logger) *infragin.Server {
	r.logger = log

	builder := infragin.NewServerBuilder(r.cfg.Service.Name, r.cfg.Service.Port).
		WithLogger(log).
		WithDebug(r.cfg.Service.Debug).
		WithVersion(r.cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithCORS(infragin.CORSConfig{
			Enabled:          true,
			AllowedOrigins:   r.cfg.CORS.Origins,
			AllowCredentials: true,
		})

	if r.deps.DBPing != nil {
		builder = builder.WithDatabaseHealthCheck(pingWithTimeout(r.deps.DBPing))
	}
	if r.deps.RedisPing != nil {
		builder = builder.WithRedisHealthCheck(pingWithTimeout(r.deps.RedisPing))
	}
	if r.deps.Metrics != nil {
		builder = builder.WithMetricsHandler(r.deps.Metrics)
	}

	return builder.WithRoutes(r.setupServiceRoutes).Build()
}

func pingWithTimeout(ping func(ctx context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		return ping(ctx)
	}
}

func (r *Router) setupServiceRoutes(router *gin.Engine) {
	apiGroup := infragin.ProtectedGroup(router, "/api", r.cfg.Auth.JWTSecret)
	apiGroup.Use(r.actorMiddleware())

	schedule := apiGroup.Group("/creator/schedule")
	schedule.POST("", r.createSchedule)
	schedule.GET("", r.listSchedules)
	schedule.GET("/available", r.availableContent)
	schedule.POST("/recurring", r.createRecurring)
	schedule.PUT("/:id", r.updateSchedule)
	schedule.DELETE("/:id", r.cancelSchedule)

	autoPublish := apiGroup.Group("/auto-publish")
	autoPublish.POST("", jwt.RequireRoles(string(domain.RoleSuperAdmin), string(domain.RoleSystem)), r.runSweep)
	autoPublish.GET("", r.sweepStatus)
}
