// Package lock provides the mutual-exclusion primitive that serializes
// orchestration runs of the same job name. Acquisition is a single atomic
// set-if-absent-with-expiry against the shared store; release is a
// compare-and-delete on the holder token so an expired holder can never
// clear a lock re-acquired by someone else.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the narrow KV capability the lock needs. Implemented by the
// Redis-backed store and by an in-memory store for tests and single-node
// deployments.
type Store interface {
	// SetNX sets key to value with a TTL only if the key is absent.
	// Returns true if the key was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// DeleteIfEquals deletes key only if its current value matches.
	// Returns true if the key was deleted.
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// Lock is a distributed lock over a Store.
type Lock struct {
	store Store
}

// New creates a lock backed by the given store.
func New(store Store) *Lock {
	return &Lock{store: store}
}

// Acquire attempts to take the lock for key with the given TTL. On success
// it returns a random holder token; if the lock is held it returns an empty
// token and no error. Contention is not an error condition.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// AcquireWithRetry layers bounded fixed-backoff retry on top of Acquire.
// It returns an empty token if the lock is still held after maxRetries
// additional attempts; callers must treat that as "another run is in
// progress" and exit cleanly.
func (l *Lock) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	for attempt := 0; ; attempt++ {
		token, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
		if attempt >= maxRetries {
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// Release frees the lock if token still identifies the current holder.
// Returns false when the lock was not held by this token (expired and
// possibly re-acquired elsewhere).
func (l *Lock) Release(ctx context.Context, key, token string) (bool, error) {
	return l.store.DeleteIfEquals(ctx, key, token)
}

// IsHeld reports whether any holder currently owns the lock.
func (l *Lock) IsHeld(ctx context.Context, key string) (bool, error) {
	return l.store.Exists(ctx, key)
}
