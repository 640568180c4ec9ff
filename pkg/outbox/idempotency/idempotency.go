// Package idempotency remembers which Pub/Sub deliveries a consumer already
// handled so redelivered events can be acked without reprocessing.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
)

const processedScope = "evt:processed"

// Store is the key-value surface Manager needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IdempotencyKey(scope, id string) string
}

// Manager records processed event IDs in Redis. A marker is written only
// after the consumer's work committed, so an interrupted delivery is never
// mistaken for a finished one. Markers live for ttl, which must outlast the
// subscription's redelivery window.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Seen reports whether (consumer, eventID) was already marked processed.
func (m *Manager) Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Get(ctx, key); err != nil {
		if redis.IsMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return true, nil
}

// MarkProcessed records that eventID finished for consumer.
func (m *Manager) MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	return nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(processedScope+":"+consumer, eventID.String()), nil
}
