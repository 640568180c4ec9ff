package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/idempotency"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
)

type stubIngester struct {
	calls  []OrderPaid
	result error
}

func (s *stubIngester) Ingest(_ context.Context, event OrderPaid) ([]models.SettlementEntry, error) {
	s.calls = append(s.calls, event)
	return nil, s.result
}

type stubTracker struct {
	processed map[uuid.UUID]bool
	seenErr   error
	marked    []uuid.UUID
}

func newStubTracker() *stubTracker {
	return &stubTracker{processed: map[uuid.UUID]bool{}}
}

func (s *stubTracker) Seen(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if s.seenErr != nil {
		return false, s.seenErr
	}
	return s.processed[eventID], nil
}

func (s *stubTracker) MarkProcessed(_ context.Context, _ string, eventID uuid.UUID) error {
	s.processed[eventID] = true
	s.marked = append(s.marked, eventID)
	return nil
}

// ctxStore is a Redis stand-in that fails once its context is done.
type ctxStore struct {
	values map[string]string
}

func (s *ctxStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *ctxStore) Set(ctx context.Context, key string, value any, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.values[key] = fmt.Sprint(value)
	return nil
}

func (s *ctxStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

type ingestFunc func(ctx context.Context, event OrderPaid) ([]models.SettlementEntry, error)

func (f ingestFunc) Ingest(ctx context.Context, event OrderPaid) ([]models.SettlementEntry, error) {
	return f(ctx, event)
}

func newTestConsumer(svc ingester, tracker processedTracker) *Consumer {
	return &Consumer{
		service:     svc,
		idempotency: tracker,
		decoders:    NewDecoders(),
		logg:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		name:        defaultConsumerName,
	}
}

func orderPaidMessage(t *testing.T, eventID uuid.UUID, version int) []byte {
	t.Helper()
	data, err := json.Marshal(payloads.OrderPaidEvent{
		OrderID:     uuid.New(),
		OrderNumber: 77,
		PaidAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Allocations: []payloads.OrderPaidAllocation{{SellerID: uuid.New(), Amount: decimal.RequireFromString("12.34")}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return envelope
}

var orderPaidAttrs = map[string]string{"event_type": string(enums.EventOrderPaid)}

func TestConsumerIngestsOnce(t *testing.T) {
	svc := &stubIngester{}
	tracker := newStubTracker()
	consumer := newTestConsumer(svc, tracker)
	eventID := uuid.New()
	data := orderPaidMessage(t, eventID, 1)

	for i := 0; i < 2; i++ {
		res := consumer.process(context.Background(), "msg-1", orderPaidAttrs, data)
		if !res.ack {
			t.Fatalf("expected ack on delivery %d", i+1)
		}
	}
	if len(svc.calls) != 1 {
		t.Fatalf("expected one ingest call, got %d", len(svc.calls))
	}
	if len(tracker.marked) != 1 || tracker.marked[0] != eventID {
		t.Fatalf("expected event to be marked once, got %v", tracker.marked)
	}
	if got := svc.calls[0].Allocations[0].Amount.String(); got != "12.34" {
		t.Fatalf("unexpected amount %s", got)
	}
}

func TestConsumerSkipsOtherEvents(t *testing.T) {
	svc := &stubIngester{}
	consumer := newTestConsumer(svc, newStubTracker())

	res := consumer.process(context.Background(), "msg-1", map[string]string{"event_type": "something_else"}, []byte("{}"))
	if !res.ack || len(svc.calls) != 0 {
		t.Fatalf("expected skip with ack")
	}
}

func TestConsumerAcksUnknownVersion(t *testing.T) {
	svc := &stubIngester{}
	consumer := newTestConsumer(svc, newStubTracker())

	res := consumer.process(context.Background(), "msg-1", orderPaidAttrs, orderPaidMessage(t, uuid.New(), 9))
	if !res.ack || len(svc.calls) != 0 {
		t.Fatalf("expected unknown version to be acked without ingest")
	}
}

func TestConsumerAcksInvalidAllocation(t *testing.T) {
	svc := &stubIngester{result: invalidAllocation("seller unknown")}
	tracker := newStubTracker()
	consumer := newTestConsumer(svc, tracker)

	res := consumer.process(context.Background(), "msg-1", orderPaidAttrs, orderPaidMessage(t, uuid.New(), 1))
	if !res.ack {
		t.Fatalf("expected ack for rejected allocation")
	}
	if len(tracker.marked) != 1 {
		t.Fatalf("expected rejected event to be marked processed")
	}
}

func TestConsumerNacksOnStorageFailure(t *testing.T) {
	svc := &stubIngester{result: errors.New("db down")}
	tracker := newStubTracker()
	consumer := newTestConsumer(svc, tracker)
	eventID := uuid.New()

	res := consumer.process(context.Background(), "msg-1", orderPaidAttrs, orderPaidMessage(t, eventID, 1))
	if !res.nack {
		t.Fatalf("expected nack")
	}
	if len(tracker.marked) != 0 || tracker.processed[eventID] {
		t.Fatalf("expected failed event to stay unmarked")
	}
}

func TestConsumerIngestsWhenIdempotencyUnavailable(t *testing.T) {
	svc := &stubIngester{}
	tracker := newStubTracker()
	tracker.seenErr = errors.New("redis down")
	consumer := newTestConsumer(svc, tracker)

	res := consumer.process(context.Background(), "msg-1", orderPaidAttrs, orderPaidMessage(t, uuid.New(), 1))
	if !res.ack || len(svc.calls) != 1 {
		t.Fatalf("expected ingest to fall through to the ledger and ack")
	}
}

func TestConsumerRedeliveryAfterInterruptedIngest(t *testing.T) {
	manager, err := idempotency.NewManager(&ctxStore{values: map[string]string{}}, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	svc := ingestFunc(func(ctx context.Context, _ OrderPaid) ([]models.SettlementEntry, error) {
		calls++
		if calls == 1 {
			cancel()
			return nil, ctx.Err()
		}
		return nil, nil
	})
	consumer := newTestConsumer(svc, manager)
	eventID := uuid.New()
	data := orderPaidMessage(t, eventID, 1)

	first := consumer.process(ctx, "msg-1", orderPaidAttrs, data)
	assert.True(t, first.nack)

	second := consumer.process(context.Background(), "msg-1", orderPaidAttrs, data)
	assert.True(t, second.ack)
	assert.Equal(t, 2, calls, "redelivered event must reach the ledger")

	seen, err := manager.Seen(context.Background(), defaultConsumerName, eventID)
	require.NoError(t, err)
	assert.True(t, seen)

	third := consumer.process(context.Background(), "msg-1", orderPaidAttrs, data)
	assert.True(t, third.ack)
	assert.Equal(t, 2, calls)
}

func TestConsumerMarksAfterReceiveContextEnds(t *testing.T) {
	manager, err := idempotency.NewManager(&ctxStore{values: map[string]string{}}, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	svc := ingestFunc(func(context.Context, OrderPaid) ([]models.SettlementEntry, error) {
		// Shutdown lands after the ledger commit but before the ack.
		cancel()
		return nil, nil
	})
	consumer := newTestConsumer(svc, manager)
	eventID := uuid.New()

	res := consumer.process(ctx, "msg-1", orderPaidAttrs, orderPaidMessage(t, eventID, 1))
	assert.True(t, res.ack)

	seen, err := manager.Seen(context.Background(), defaultConsumerName, eventID)
	require.NoError(t, err)
	assert.True(t, seen)
}
