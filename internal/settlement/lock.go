package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
)

const entryLockScope = "settlement:entry"

// Lock is an exclusive hold on one ledger entry while money may be moving.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Locker hands out per-entry locks shared by the sweeper and the payout executor.
type Locker interface {
	EntryLock(entryID uuid.UUID) (Lock, error)
}

type lockKeyStore interface {
	redis.LockStore
	LockKey(scope, id string) string
}

// RedisLocker builds entry locks on the shared Redis client.
type RedisLocker struct {
	store lockKeyStore
	ttl   time.Duration
}

// NewRedisLocker returns a Locker whose locks expire after ttl.
func NewRedisLocker(store lockKeyStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("entry lock ttl must be positive")
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

func (l *RedisLocker) EntryLock(entryID uuid.UUID) (Lock, error) {
	lock, err := redis.NewLock(l.store, l.store.LockKey(entryLockScope, entryID.String()), l.ttl)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
