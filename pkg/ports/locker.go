package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writes to one document across replicas that
// share a store. The document manager takes it around every commit.
type DistributedLocker interface {
	// Lock blocks until docID is free or ctx is done. The lock is dropped
	// after ttl even if the holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, docID string, ttl time.Duration) (UnlockFunc, error)
}
