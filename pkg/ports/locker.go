package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes calls on one story session across processes
// sharing a ContentStore, so two servers never advance the same cursor at once.
type DistributedLocker interface {
	// Lock blocks until key (a session ID) is held or ctx is done. The lock
	// expires after ttl if never released. The returned UnlockFunc must be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
