package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

var (
	// ErrTxRequired is returned when Emit is called outside a transaction.
	ErrTxRequired = errors.New("outbox: transaction required")
	// ErrUnknownEventType is returned for event types the registry cannot route.
	ErrUnknownEventType = errors.New("outbox: unknown event type")
)

const uniqueEventPerAggregate = "ux_outbox_events_event_aggregate"

// DomainEvent is an event queued in the same transaction as the state change
// it describes.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Service writes DomainEvents into outbox_events for the publisher to drain.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit stores event in tx. The row commits or rolls back with the caller's
// ledger change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	row, eventID, err := s.buildRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":       eventID,
			"event_type":     row.EventType,
			"aggregate_type": row.AggregateType,
			"aggregate_id":   row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitIfNotExists queues the event unless one with the same type and
// aggregate is already stored.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, uniqueEventPerAggregate) {
		return nil
	}
	return err
}

func (s *Service) buildRow(event DomainEvent) (models.OutboxEvent, string, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, "", fmt.Errorf("%w: %q", ErrUnknownEventType, event.EventType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("outbox: encode %s payload: %w", event.EventType, err)
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	occurred = occurred.UTC()
	version := event.Version
	if version == 0 {
		version = 1
	}

	envelope := PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred,
		Source:     EnvelopeSource,
		Actor:      event.Actor,
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, "", err
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
		CreatedAt:     occurred,
	}, envelope.EventID, nil
}
