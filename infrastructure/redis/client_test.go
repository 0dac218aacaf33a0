package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/redis"
)

func TestNewClient_ReturnsErrorWhenAddressEmpty(t *testing.T) {
	t.Parallel()

	client, err := redis.NewClient(context.Background(), redis.Config{})

	require.ErrorIs(t, err, redis.ErrEmptyAddress)
	assert.Nil(t, client)
}

func TestNewClient_ConnectsToRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	client, err := redis.NewClient(context.Background(), redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_PingFailure(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redis.NewClient(context.Background(), redis.Config{Address: addr})
	require.Error(t, err)
}

func TestTryLock(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	first, err := redis.TryLock(ctx, client, "lock:sweep", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := redis.TryLock(ctx, client, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second, "lock should be held by the first caller")

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("lock:sweep"))

	third, err := redis.TryLock(ctx, client, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestTryLock_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	stale, err := redis.TryLock(ctx, client, "lock:sweep", time.Second)
	require.NoError(t, err)
	require.NotNil(t, stale)

	mr.FastForward(2 * time.Second)

	fresh, err := redis.TryLock(ctx, client, "lock:sweep", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, fresh)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("lock:sweep"), "stale holder must not drop a newer lock")
}
