// Package config defines the scheduler service configuration.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/config"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/profiling"
)

const (
	defaultServiceName    = "h3-scheduler"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8080
	defaultTimezone       = "UTC"
	defaultEventsChannel  = "h3:content:published"
	defaultMaxIterations  = 1000
	defaultEndCount       = 10
	defaultBatchSize      = 100
	defaultMaxRetries     = 3
	defaultUpcomingWindow = time.Hour
	defaultRecentWindow   = 24 * time.Hour
	defaultSweepCron      = "*/15 * * * *"
	defaultLockTTL        = 5 * time.Minute
	defaultItemTimeout    = 30 * time.Second
	defaultLockKey        = "h3:sweep:lock"
	maxBatchSize          = 1000
	minJWTSecretLength    = 16
)

// Config is the root configuration.
type Config struct {
	Service    ServiceConfig              `yaml:"service"`
	Database   infraconfig.DatabaseConfig `yaml:"database"`
	Redis      RedisConfig                `yaml:"redis"`
	Auth       AuthConfig                 `yaml:"auth"`
	Scheduling SchedulingConfig           `yaml:"scheduling"`
	Sweep      SweepConfig                `yaml:"sweep"`
	Logging    infraconfig.LoggingConfig  `yaml:"logging"`
	CORS       CORSConfig                 `yaml:"cors"`
	Profiling  profiling.Config           `yaml:"profiling"`
}

// ServiceConfig identifies the process and its HTTP port.
type ServiceConfig struct {
	Name    string `env:"SCHEDULER_SERVICE_NAME" yaml:"name"`
	Version string `env:"SCHEDULER_VERSION"      yaml:"version"`
	Port    int    `env:"SCHEDULER_PORT"         yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"              yaml:"debug"`
	// Timezone is the IANA zone used to evaluate recurrence rules.
	Timezone string `env:"SCHEDULER_TIMEZONE" yaml:"timezone"`
}

// RedisConfig adds the events channel to the shared connection settings.
type RedisConfig struct {
	infraconfig.RedisConfig `yaml:",inline"`
	EventsChannel           string `env:"REDIS_EVENTS_CHANNEL" yaml:"events_channel"`
}

// AuthConfig holds the JWT signing secret.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"` //nolint:gosec // config field
}

// SchedulingConfig bounds recurrence expansion.
type SchedulingConfig struct {
	MaxIterations   int `env:"SCHEDULING_MAX_ITERATIONS"    yaml:"max_iterations"`
	DefaultEndCount int `env:"SCHEDULING_DEFAULT_END_COUNT" yaml:"default_end_count"`
}

// SweepConfig tunes the publish sweep and its trigger.
type SweepConfig struct {
	BatchSize      int           `env:"SWEEP_BATCH_SIZE"   yaml:"batch_size"`
	RetryFailed    bool          `env:"SWEEP_RETRY_FAILED" yaml:"retry_failed"`
	MaxRetries     int           `env:"SWEEP_MAX_RETRIES"  yaml:"max_retries"`
	UpcomingWindow time.Duration `yaml:"upcoming_window"`
	RecentWindow   time.Duration `yaml:"recent_window"`
	Cron           string        `env:"SWEEP_CRON"         yaml:"cron"`
	LockKey        string        `yaml:"lock_key"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	ItemTimeout    time.Duration `yaml:"item_timeout"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	Origins []string `env:"CORS_ORIGINS" yaml:"origins"`
}

// Load reads path, applies defaults and validates.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Database.SetDefaults()
	cfg.Redis.SetDefaults()
	if cfg.Redis.EventsChannel == "" {
		cfg.Redis.EventsChannel = defaultEventsChannel
	}
	setSchedulingDefaults(&cfg.Scheduling)
	setSweepDefaults(&cfg.Sweep)
	cfg.Logging.SetDefaults()
	if len(cfg.CORS.Origins) == 0 {
		cfg.CORS.Origins = []string{"http://localhost:3000"}
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.Timezone == "" {
		s.Timezone = defaultTimezone
	}
}

func setSchedulingDefaults(s *SchedulingConfig) {
	if s.MaxIterations == 0 {
		s.MaxIterations = defaultMaxIterations
	}
	if s.DefaultEndCount == 0 {
		s.DefaultEndCount = defaultEndCount
	}
}

func setSweepDefaults(s *SweepConfig) {
	if s.BatchSize == 0 {
		s.BatchSize = defaultBatchSize
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = defaultMaxRetries
	}
	if s.UpcomingWindow == 0 {
		s.UpcomingWindow = defaultUpcomingWindow
	}
	if s.RecentWindow == 0 {
		s.RecentWindow = defaultRecentWindow
	}
	if s.Cron == "" {
		s.Cron = defaultSweepCron
	}
	if s.LockKey == "" {
		s.LockKey = defaultLockKey
	}
	if s.LockTTL == 0 {
		s.LockTTL = defaultLockTTL
	}
	if s.ItemTimeout == 0 {
		s.ItemTimeout = defaultItemTimeout
	}
}

// Validate returns the first invalid field as *infraconfig.ValidationError.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Service.Timezone); err != nil {
		return &infraconfig.ValidationError{Field: "service.timezone", Message: err.Error()}
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return &infraconfig.ValidationError{
			Field:   "auth.jwt_secret",
			Message: fmt.Sprintf("must be at least %d characters", minJWTSecretLength),
		}
	}
	if err := infraconfig.ValidatePositive("scheduling.max_iterations", int64(c.Scheduling.MaxIterations)); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("scheduling.default_end_count", int64(c.Scheduling.DefaultEndCount)); err != nil {
		return err
	}
	if err := c.validateSweep(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

func (c *Config) validateSweep() error {
	if c.Sweep.BatchSize < 1 || c.Sweep.BatchSize > maxBatchSize {
		return &infraconfig.ValidationError{
			Field:   "sweep.batch_size",
			Message: fmt.Sprintf("must be between 1 and %d", maxBatchSize),
		}
	}
	if err := infraconfig.ValidatePositive("sweep.max_retries", int64(c.Sweep.MaxRetries)); err != nil {
		return err
	}
	if c.Sweep.LockTTL <= 0 {
		return &infraconfig.ValidationError{Field: "sweep.lock_ttl", Message: "must be positive"}
	}
	return nil
}

// Location returns the recurrence time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
