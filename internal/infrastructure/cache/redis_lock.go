package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"barstock/internal/core/apperror"
	"barstock/internal/core/lock"
)

const lockPrefix = "barstock:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lock.Locker shared by every server instance.
type RedisLocker struct {
	client redis.UniversalClient
}

var _ lock.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker on client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire sets key with SET NX PX. A held key yields OPERATION_IN_PROGRESS.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, error) {
	token := uuid.NewString()
	full := lockPrefix + key

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("acquire lock %s: %w", key, err))
	}
	if !ok {
		return nil, apperror.NewLocked(key)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{full}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
