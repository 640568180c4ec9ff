package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
)

// EventDescriptor routes one ledger event type to its Pub/Sub topic.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row checked against its descriptor, with the
// envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every event type the publisher may send.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish; the dispatcher moves
// it to the DLQ instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the dispatcher stops retrying.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// NewEventRegistry wires vendor-facing events (paid, cancelled) to the
// notification topic and operator-facing events to the operations topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var errs []error
	if cfg.NotificationTopic == "" {
		errs = append(errs, errors.New("notification topic is required"))
	}
	if cfg.OperationsTopic == "" {
		errs = append(errs, errors.New("operations topic is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	notify, ops := cfg.NotificationTopic, cfg.OperationsTopic
	descriptors := []EventDescriptor{
		route[payloads.PayoutPaidEvent](enums.EventSettlementPayoutPaid, enums.AggregateSettlementEntry, notify),
		route[payloads.EntryCancelledEvent](enums.EventSettlementEntryCancelled, enums.AggregateSettlementEntry, notify),
		route[payloads.PayoutAttentionEvent](enums.EventSettlementPayoutAttention, enums.AggregateSettlementEntry, ops),
		route[payloads.AllocationRejectedEvent](enums.EventSettlementAllocationRejected, enums.AggregateCheckoutGroup, ops),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics returns the distinct topics the registry publishes to, sorted.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.entries))
	for _, desc := range r.entries {
		topics = append(topics, desc.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the same row will fail the same way.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if !envelope.HasData() {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}
	if desc.decode == nil {
		return nil, nonRetryable("no decoder for %s", event.EventType)
	}
	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
