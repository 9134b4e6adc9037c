package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eli-dashboard/internal/client"
)

func newLimiter(t *testing.T) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := &client.RedisClient{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })
	return NewLoginLimiter(rc, 3, 15*time.Minute, 10*time.Minute), mr
}

func TestLoginLimiterLocksAtThreshold(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	for i := 1; i < 3; i++ {
		n, locked, err := l.RecordFailure(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
		assert.False(t, locked)
	}

	n, locked, err := l.RecordFailure(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, locked)

	isLocked, err := l.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, isLocked)

	other, err := l.IsLocked(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, other)

	assert.Equal(t, 10*time.Minute, mr.TTL(loginLockPrefix+"10.0.0.1"))
	assert.Equal(t, 15*time.Minute, mr.TTL(loginFailurePrefix+"10.0.0.1"))

	mr.FastForward(11 * time.Minute)
	isLocked, err = l.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, isLocked)
}

func TestLoginLimiterWindowExpires(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	_, _, err := l.RecordFailure(ctx, "10.0.0.9")
	require.NoError(t, err)
	mr.FastForward(16 * time.Minute)

	assert.False(t, mr.Exists(loginFailurePrefix+"10.0.0.9"))

	n, _, err := l.RecordFailure(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoginLimiterReset(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := l.RecordFailure(ctx, "10.0.0.3")
		require.NoError(t, err)
	}
	require.NoError(t, l.Reset(ctx, "10.0.0.3"))

	locked, err := l.IsLocked(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.False(t, locked)

	assert.False(t, mr.Exists(loginFailurePrefix+"10.0.0.3"))
	assert.False(t, mr.Exists(loginLockPrefix+"10.0.0.3"))
}
