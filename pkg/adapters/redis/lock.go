package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/paneltree/pkg/ports"
)

var (
	// ErrLockAcquire wraps redis failures while taking a document lock.
	ErrLockAcquire = errors.New("failed to acquire document lock")
	// ErrLockLost is returned by an unlock whose lock expired and may have
	// been taken by another replica in the meantime.
	ErrLockLost = errors.New("document lock expired before release")
)

// releaseScript deletes KEYS[1] when it still holds ARGV[1] and reports
// whether it did.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Locker serializes document writes across replicas with SET NX PX keys.
type Locker struct {
	client *backend.Client
	prefix string
	poll   time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithPollInterval sets how often a waiting Lock retries. Default 50ms.
func WithPollInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.poll = d
		}
	}
}

// NewLocker creates a locker whose keys are prefix + document id.
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{client: client, prefix: prefix, poll: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock waits until the document lock is free or ctx is done. The lock
// expires after ttl even if never released.
func (l *Locker) Lock(ctx context.Context, docID string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := l.prefix + docID
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrLockAcquire, docID, err)
		}
		if ok {
			return l.release(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(key, token string) ports.UnlockFunc {
	return func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrLockLost
		}
		return nil
	}
}
