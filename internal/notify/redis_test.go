package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/retry"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/notify"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisNotifier_RequiresChannel(t *testing.T) {
	t.Parallel()
	_, client := newClient(t)

	_, err := notify.NewRedisNotifier(client, "", retry.Config{}, infralogger.NewNop())
	require.ErrorIs(t, err, notify.ErrNoChannel)
}

func TestAnnounce_PublishesJSON(t *testing.T) {
	t.Parallel()
	_, client := newClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, notify.DefaultChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n, err := notify.NewRedisNotifier(client, notify.DefaultChannel, retry.Config{MaxAttempts: 1}, infralogger.NewNop())
	require.NoError(t, err)

	event := domain.PublishedEvent{
		ScheduleID:  "item-1",
		ContentID:   "v1",
		ContentType: domain.ContentTypeVideo,
		CreatorID:   "c-1",
		Title:       "Pilot",
		PublishedAt: time.Date(2030, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Announce(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got domain.PublishedEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestAnnounce_ReturnsErrorWhenRedisIsDown(t *testing.T) {
	t.Parallel()
	mr, client := newClient(t)
	mr.Close()

	n, err := notify.NewRedisNotifier(client, "events", retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond}, infralogger.NewNop())
	require.NoError(t, err)

	err = n.Announce(context.Background(), domain.PublishedEvent{ScheduleID: "item-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to events")
}
