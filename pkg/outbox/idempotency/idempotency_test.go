package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "pf:idempotency:" + scope + ":" + id
}

func TestSeenOnlyAfterMarkProcessed(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, 72*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	seen, err := manager.Seen(ctx, "settlement-ingestion", eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, manager.MarkProcessed(ctx, "settlement-ingestion", eventID))
	seen, err = manager.Seen(ctx, "settlement-ingestion", eventID)
	require.NoError(t, err)
	assert.True(t, seen)

	key := "pf:idempotency:evt:processed:settlement-ingestion:" + eventID.String()
	assert.Equal(t, 72*time.Hour, store.ttls[key])

	other, err := manager.Seen(ctx, "settlement-audit", eventID)
	require.NoError(t, err)
	assert.False(t, other, "markers are scoped per consumer")
}

func TestManagerErrors(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Seen(context.Background(), "settlement-ingestion", uuid.New())
	assert.ErrorIs(t, err, store.getErr)
	assert.ErrorIs(t, manager.MarkProcessed(context.Background(), "settlement-ingestion", uuid.New()), store.setErr)

	_, err = manager.Seen(context.Background(), "", uuid.New())
	assert.Error(t, err)
	assert.Error(t, manager.MarkProcessed(context.Background(), "settlement-ingestion", uuid.Nil))
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMemoryStore(), 0)
	assert.Error(t, err)
}
