// Package lock provides short-lived named locks used to reject double submits.
package lock

import (
	"context"
	"sync"
	"time"

	"barstock/internal/core/apperror"
)

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker acquires named locks that expire after ttl.
// Acquire returns an OPERATION_IN_PROGRESS conflict when the key is held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu    sync.Mutex
	held  map[string]localEntry
	now   func() time.Time
	nonce uint64
}

type localEntry struct {
	expires time.Time
	nonce   uint64
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

// Acquire takes key until Release is called or ttl passes.
func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, apperror.NewLocked(key)
	}

	l.nonce++
	nonce := l.nonce
	l.held[key] = localEntry{expires: now.Add(ttl), nonce: nonce}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Only the holder that took the key may free it.
		if e, ok := l.held[key]; ok && e.nonce == nonce {
			delete(l.held, key)
		}
		return nil
	}, nil
}
