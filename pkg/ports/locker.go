package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a run lock.
type UnlockFunc func(ctx context.Context) error

// RunLocker serializes build runs. The engine locks one key for its target
// root and one for its cache root before wiping the target tree.
type RunLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done. The lock
	// expires after ttl if it is never released (implementation specific).
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
