package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/settlement/settlementtest"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeWithSource(t *testing.T) {
	db := settlementtest.NewDB(t)
	repo := outbox.NewRepository(db)
	svc := outbox.NewService(repo, nil)

	entryID := uuid.New()
	occurred := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementEntryCancelled,
			AggregateType: enums.AggregateSettlementEntry,
			AggregateID:   entryID,
			Data:          payloads.EntryCancelledEvent{EntryID: entryID},
			OccurredAt:    occurred,
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(context.Background(), enums.AggregateSettlementEntry, entryID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, outbox.EnvelopeSource, envelope.Source)
	assert.True(t, envelope.OccurredAt.Equal(occurred))
	assert.True(t, envelope.HasData())
	_, err = envelope.ParseEventID()
	assert.NoError(t, err)
}

func TestEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	db := settlementtest.NewDB(t)
	repo := outbox.NewRepository(db)
	svc := outbox.NewService(repo, nil)

	entryID := uuid.New()
	event := outbox.DomainEvent{
		EventType:     enums.EventSettlementPayoutAttention,
		AggregateType: enums.AggregateSettlementEntry,
		AggregateID:   entryID,
		Data:          payloads.PayoutAttentionEvent{EntryID: entryID},
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	rows, err := repo.ListByAggregate(context.Background(), enums.AggregateSettlementEntry, entryID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestEmitRejectsUnknownTypeAndMissingTx(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(settlementtest.NewDB(t)), nil)

	assert.ErrorIs(t, svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventSettlementPayoutPaid}), outbox.ErrTxRequired)

	db := settlementtest.NewDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{EventType: "not_a_type"})
	})
	assert.ErrorIs(t, err, outbox.ErrUnknownEventType)
}
