package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryLockStore) LockKey(scope, id string) string {
	return "pf:lock:" + scope + ":" + id
}

func TestRedisLockerIsPerEntry(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	ctx := context.Background()
	entryA, entryB := uuid.New(), uuid.New()

	first, _ := locker.EntryLock(entryA)
	second, _ := locker.EntryLock(entryA)
	other, _ := locker.EntryLock(entryB)

	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("expected same entry to be locked")
	}
	if ok, _ := other.Acquire(ctx); !ok {
		t.Fatalf("expected other entry to be free")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
	if _, ok := store.values["pf:lock:settlement:entry:"+entryA.String()]; !ok {
		t.Fatalf("expected namespaced lock key")
	}
}

func TestNewRedisLockerValidates(t *testing.T) {
	if _, err := NewRedisLocker(nil, time.Minute); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewRedisLocker(&memoryLockStore{}, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}
