package session

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when a session lock could not be taken before the
// context ended.
var ErrLockNotAcquired = errors.New("session lock not acquired")

// Store is the key-value contract the collector persists conversation state through.
// Get returns nil, nil for a missing or expired key. SetWithTTL is an idempotent upsert.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Lock serialises work on key. The returned function releases the lock and is safe
	// to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}
