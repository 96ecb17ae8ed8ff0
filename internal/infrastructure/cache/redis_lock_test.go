package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	release, err := l.Acquire(ctx, "stocktake:1:approve", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "stocktake:1:approve", time.Minute)
	assert.True(t, apperror.HasCode(err, apperror.CodeLocked))

	other, err := l.Acquire(ctx, "stocktake:2:approve", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := l.Acquire(ctx, "stocktake:1:approve", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockerExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLocker(t)

	stale, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// The expired holder must not free the new holder's lock.
	require.NoError(t, stale(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.True(t, apperror.HasCode(err, apperror.CodeLocked))

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists(lockPrefix+"k"))
}
