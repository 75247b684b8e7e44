package xlimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).tryDial"),
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/maintnotifications.(*CircuitBreakerManager).cleanupLoop"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
}

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedis_Validation(t *testing.T) {
	client := setupRedis(t)

	_, err := NewRedis(nil, PerSecond(1))
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = NewRedis(client, PerSecond(0))
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewRedis(client, Rate{Limit: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestRedisLimiter_Allow(t *testing.T) {
	client := setupRedis(t)
	l, err := NewRedis(client, Rate{Limit: 2, Burst: 2, Period: time.Minute}, WithPrefix("test:"))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := l.Allow(ctx, "orders", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.Allow(ctx, "orders", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "orders", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// 不同键互不影响。
	res, err = l.Allow(ctx, "refunds", 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, "orders"))
	res, err = l.Allow(ctx, "orders", 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_ExceedsBurst(t *testing.T) {
	client := setupRedis(t)
	l, err := NewRedis(client, PerSecond(2))
	require.NoError(t, err)

	_, err = l.Allow(context.Background(), "orders", 3)
	assert.ErrorIs(t, err, ErrExceedsBurst)
	assert.ErrorIs(t, l.Wait(context.Background(), "orders", 3), ErrExceedsBurst)
}

func TestRedisLimiter_WaitBlocksUntilAllowed(t *testing.T) {
	client := setupRedis(t)
	l, err := NewRedis(client, Rate{Limit: 10, Burst: 1, Period: time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "orders", 1))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "orders", 1))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRedisLimiter_WaitHonoursContext(t *testing.T) {
	client := setupRedis(t)
	l, err := NewRedis(client, Rate{Limit: 1, Burst: 1, Period: time.Hour})
	require.NoError(t, err)

	require.NoError(t, l.Wait(context.Background(), "orders", 1))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "orders", 1), context.DeadlineExceeded)
}
