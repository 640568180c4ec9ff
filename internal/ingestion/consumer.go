package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/registry"
)

const defaultConsumerName = "settlement-ingestion"

type ingester interface {
	Ingest(ctx context.Context, event OrderPaid) ([]models.SettlementEntry, error)
}

type processedTracker interface {
	Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ConsumerParams wires the order paid consumer.
type ConsumerParams struct {
	Service      ingester
	Subscription *pubsub.Subscriber
	Idempotency  processedTracker
	Logger       *logger.Logger
	Name         string
}

// Consumer feeds order paid events from Pub/Sub into the ingestion service.
type Consumer struct {
	service      ingester
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	name         string
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Service == nil {
		return nil, fmt.Errorf("ingestion service required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("settlement subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	name := params.Name
	if name == "" {
		name = defaultConsumerName
	}
	return &Consumer{
		service:      params.Service,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     NewDecoders(),
		logg:         params.Logger,
		name:         name,
	}, nil
}

// NewDecoders registers the order paid payload versions this consumer accepts.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	registry.RegisterJSON[payloads.OrderPaidEvent](decoders, enums.EventOrderPaid, 1)
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) processResult {
	eventType := attributes["event_type"]
	fields := map[string]any{
		"message_id": messageID,
		"event_type": eventType,
		"consumer":   c.name,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventOrderPaid) {
		c.logg.Debug(logCtx, "skipping non order paid event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := envelope.ParseEventID()
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	decoded, err := c.decoders.Decode(enums.EventOrderPaid, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(c.logg.WithFields(logCtx, map[string]any{
			"version":            envelope.Version,
			"supported_versions": c.decoders.Versions(enums.EventOrderPaid),
		}), "failed to parse payload", err)
		return processResult{ack: true}
	}
	event, ok := decoded.(payloads.OrderPaidEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		return processResult{ack: true}
	}

	// The marker is only a shortcut: Ingest dedupes on the entry key, so a
	// lookup failure falls through to the ledger instead of blocking delivery.
	seen, err := c.idempotency.Seen(ctx, c.name, eventID)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "lookup_error", err.Error()), "idempotency lookup failed")
	}
	if seen {
		c.logg.Debug(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if _, err := c.service.Ingest(ctx, event); err != nil && !errors.Is(err, ErrInvalidAllocation) {
		c.logg.Error(logCtx, "ingestion failed", err)
		return processResult{nack: true}
	}
	// Rejected allocations were reported by the service; redelivery cannot fix them.
	// The marker outlives a cancelled receive context once the ledger committed.
	if err := c.idempotency.MarkProcessed(context.WithoutCancel(ctx), c.name, eventID); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "mark_error", err.Error()), "failed to mark event processed")
	}
	return processResult{ack: true}
}
