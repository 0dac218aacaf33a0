// Package notify announces publications on Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/retry"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "h3:content:published"

// ErrNoChannel is returned by NewRedisNotifier for an empty channel.
var ErrNoChannel = errors.New("notify: channel is required")

// RedisNotifier publishes domain.PublishedEvent as JSON.
type RedisNotifier struct {
	client  redis.Cmdable
	channel string
	retry   retry.Config
	logger  infralogger.Logger
}

// NewRedisNotifier creates a notifier publishing to channel. Transient publish
// errors are retried with retryCfg.
func NewRedisNotifier(client redis.Cmdable, channel string, retryCfg retry.Config, log infralogger.Logger) (*RedisNotifier, error) {
	if channel == "" {
		return nil, ErrNoChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		retry:   retryCfg,
		logger:  log,
	}, nil
}

// Channel returns the pub/sub channel.
func (n *RedisNotifier) Channel() string {
	return n.channel
}

// Announce publishes event. The subscriber count is logged at debug level.
func (n *RedisNotifier) Announce(ctx context.Context, event domain.PublishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal published event: %w", err)
	}

	var receivers int64
	err = retry.Do(ctx, n.retry, func(ctx context.Context) error {
		var pubErr error
		receivers, pubErr = n.client.Publish(ctx, n.channel, payload).Result()
		return pubErr
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.channel, err)
	}

	n.logger.Debug("Publication announced",
		infralogger.String("channel", n.channel),
		infralogger.String("schedule_id", event.ScheduleID),
		infralogger.Int64("receivers", receivers),
	)
	return nil
}
