package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed delivery ids so that redelivered
// webhooks can be acknowledged without touching state again.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// Locker hands out short-lived mutual exclusion tokens keyed by name.
type Locker interface {
	// TryAcquire takes the lock if nobody holds it. The returned token must be
	// passed to Release. ok is false when the lock is already held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release frees the lock if it is still held with the given token.
	Release(ctx context.Context, key, token string) error

	Close() error
}
