package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/internal/stores"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

// ErrInvalidAllocation marks an order paid event the ledger refuses to record.
var ErrInvalidAllocation = errors.New("invalid allocation")

// OrderPaid is the inbound event carrying per-seller allocations.
type OrderPaid = payloads.OrderPaidEvent

type ledgerStore interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Repo() settlement.Repository
	RecordCreatedTx(ctx context.Context, tx *gorm.DB, entry *models.SettlementEntry) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the ingestion service.
type ServiceParams struct {
	Store    ledgerStore
	Sellers  stores.Directory
	Outbox   outboxEmitter
	Logger   *logger.Logger
	Metrics  *metrics.SettlementMetrics
	HoldDays int
	Currency string
	Now      func() time.Time
}

// Service turns order paid events into pending ledger entries.
type Service struct {
	store    ledgerStore
	sellers  stores.Directory
	outbox   outboxEmitter
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
	holdDays int
	currency string
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("settlement store required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller directory required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.HoldDays < 0 {
		return nil, fmt.Errorf("hold days must be non-negative")
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    params.Store,
		sellers:  params.Sellers,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		holdDays: params.HoldDays,
		currency: currency,
		now:      now,
	}, nil
}

// Ingest records one pending entry per allocation. Replaying an event returns
// the stored entries without writing anything new. An event with any invalid
// allocation writes no entries and is reported on the operations outbox.
func (s *Service) Ingest(ctx context.Context, event OrderPaid) ([]models.SettlementEntry, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     event.OrderID.String(),
		"order_number": event.OrderNumber,
	})

	drafts, err := s.prepare(ctx, event)
	if err != nil {
		return nil, s.reject(ctx, logCtx, event, err)
	}

	entries := make([]models.SettlementEntry, 0, len(drafts))
	created := 0
	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.store.Repo().WithTx(tx)
		for _, draft := range drafts {
			stored, isNew, err := repo.InsertOrFetch(ctx, draft)
			if err != nil {
				return fmt.Errorf("insert settlement entry: %w", err)
			}
			if !isNew {
				if stored.AmountCents != draft.AmountCents || stored.SellerID != draft.SellerID {
					return invalidAllocation(fmt.Sprintf(
						"replayed allocation %s changed amount from %s to %s",
						draft.DedupeKey,
						types.MoneyFromCents(stored.AmountCents),
						types.MoneyFromCents(draft.AmountCents),
					))
				}
				s.logg.Debug(s.logg.WithField(logCtx, "dedupe_key", draft.DedupeKey), "duplicate ingestion ignored")
				entries = append(entries, *stored)
				continue
			}
			if err := s.store.RecordCreatedTx(ctx, tx, stored); err != nil {
				return err
			}
			created++
			entries = append(entries, *stored)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAllocation) {
			return nil, s.reject(ctx, logCtx, event, err)
		}
		return nil, err
	}

	s.metrics.AddIngested(created)
	if created > 0 {
		s.logg.Info(s.logg.WithField(logCtx, "created", created), "settlement entries ingested")
	}
	return entries, nil
}

func (s *Service) prepare(ctx context.Context, event OrderPaid) ([]*models.SettlementEntry, error) {
	if event.OrderID == uuid.Nil {
		return nil, invalidAllocation("order id is required")
	}
	if event.PaidAt.IsZero() {
		return nil, invalidAllocation("paid at is required")
	}
	if len(event.Allocations) == 0 {
		return nil, invalidAllocation("order has no allocations")
	}

	sellerIDs := make([]uuid.UUID, 0, len(event.Allocations))
	seen := make(map[string]struct{}, len(event.Allocations))
	drafts := make([]*models.SettlementEntry, 0, len(event.Allocations))
	saleDate := event.PaidAt.UTC()
	createdAt := s.now().UTC()

	for i, alloc := range event.Allocations {
		if alloc.SellerID == uuid.Nil {
			return nil, invalidAllocation(fmt.Sprintf("allocation %d has no seller", i))
		}
		if alloc.Amount.IsNegative() {
			return nil, invalidAllocation(fmt.Sprintf("allocation %d has negative amount %s", i, alloc.Amount.String()))
		}
		amount, err := types.MoneyFromDecimal(alloc.Amount)
		if err != nil {
			return nil, invalidAllocation(fmt.Sprintf("allocation %d: %v", i, err))
		}
		key := settlement.DedupeKey(event.OrderID, alloc.SellerID, alloc.OrderItemID)
		if _, dup := seen[key]; dup {
			return nil, invalidAllocation(fmt.Sprintf("allocation %d repeats %s", i, key))
		}
		seen[key] = struct{}{}
		sellerIDs = append(sellerIDs, alloc.SellerID)

		var itemID *uuid.UUID
		if alloc.OrderItemID != nil && *alloc.OrderItemID != uuid.Nil {
			id := *alloc.OrderItemID
			itemID = &id
		}
		drafts = append(drafts, &models.SettlementEntry{
			ID:          uuid.New(),
			OrderID:     event.OrderID,
			OrderNumber: event.OrderNumber,
			SellerID:    alloc.SellerID,
			OrderItemID: itemID,
			DedupeKey:   key,
			AmountCents: amount.Cents(),
			Currency:    s.currency,
			Status:      enums.SettlementStatusPending,
			SaleDate:    saleDate,
			HoldDays:    s.holdDays,
			EligibleAt:  settlement.EligibleAt(saleDate, s.holdDays),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	known, err := s.sellers.FindSellers(ctx, sellerIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup sellers: %w", err)
	}
	for _, id := range sellerIDs {
		if _, ok := known[id]; !ok {
			return nil, invalidAllocation(fmt.Sprintf("seller %s is unknown", id))
		}
	}
	return drafts, nil
}

// reject reports an invalid event upstream and returns err unchanged. Lookup
// and storage failures pass through without a report so they can be retried.
func (s *Service) reject(ctx, logCtx context.Context, event OrderPaid, err error) error {
	if !errors.Is(err, ErrInvalidAllocation) {
		return err
	}
	reason := err.Error()
	if typed := pkgerrors.As(err); typed != nil {
		reason = typed.Message()
	}
	s.logg.Warn(s.logg.WithField(logCtx, "reason", reason), "order paid event rejected")

	emitErr := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementAllocationRejected,
			AggregateType: enums.AggregateCheckoutGroup,
			AggregateID:   event.OrderID,
			Data: payloads.AllocationRejectedEvent{
				OrderID:     event.OrderID,
				OrderNumber: event.OrderNumber,
				Reason:      reason,
				Allocations: event.Allocations,
			},
			OccurredAt: s.now().UTC(),
		})
	})
	if emitErr != nil {
		return fmt.Errorf("report rejected allocation: %w", emitErr)
	}
	return err
}

func invalidAllocation(reason string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidAllocation, reason)
}
