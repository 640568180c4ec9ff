package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/orders"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

const defaultBatchSize = 200

type ledgerStore interface {
	Repo() settlement.Repository
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Transition(ctx context.Context, in settlement.TransitionInput) (bool, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, in settlement.TransitionInput) (bool, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SweepReport summarizes one pass over the open entries.
type SweepReport struct {
	Scanned   int
	Promoted  int
	Cancelled int
	// Conflicts counts entries another writer moved first or whose payout
	// lock was held.
	Conflicts int
	// Deferred counts refunded entries already sent to the provider. The
	// payout executor settles them once it knows whether a transfer landed.
	Deferred int
}

// ServiceParams wires the eligibility sweeper.
type ServiceParams struct {
	Store     ledgerStore
	Orders    orders.StatusReader
	Locker    settlement.Locker
	Outbox    outboxEmitter
	Logger    *logger.Logger
	BatchSize int
}

// Service promotes entries past their holding window and cancels entries
// whose order was refunded.
type Service struct {
	store     ledgerStore
	orders    orders.StatusReader
	locker    settlement.Locker
	outbox    outboxEmitter
	logg      *logger.Logger
	batchSize int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("settlement store required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order status reader required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("entry locker required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Service{
		store:     params.Store,
		orders:    params.Orders,
		locker:    params.Locker,
		outbox:    params.Outbox,
		logg:      params.Logger,
		batchSize: batch,
	}, nil
}

// Sweep walks every pending and eligible entry once. Eligibility is computed
// from sale date and hold days, so a sweep after a long outage promotes
// everything overdue. Per-entry failures are collected and do not stop the
// pass.
func (s *Service) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	now = now.UTC()
	report := &SweepReport{}
	var errs error
	statuses := []enums.SettlementStatus{enums.SettlementStatusPending, enums.SettlementStatusEligible}

	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		page, err := s.store.Repo().ListByStatus(ctx, statuses, afterID, s.batchSize)
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("list open entries: %w", err))
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID
		report.Scanned += len(page)

		voided, err := s.orders.ListVoided(ctx, orderIDs(page))
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("read refunded orders: %w", err))
		}

		for i := range page {
			entry := &page[i]
			if voided[orders.SellerOrder{OrderID: entry.OrderID, SellerID: entry.SellerID}] {
				if entry.LastAttemptAt != nil {
					report.Deferred++
					continue
				}
				errs = multierr.Append(errs, s.cancel(ctx, entry, now, report))
				continue
			}
			if entry.Status == enums.SettlementStatusPending && !now.Before(settlement.EligibleAt(entry.SaleDate, entry.HoldDays)) {
				errs = multierr.Append(errs, s.promote(ctx, entry, now, report))
			}
		}

		if len(page) < s.batchSize {
			break
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"scanned":   report.Scanned,
		"promoted":  report.Promoted,
		"cancelled": report.Cancelled,
		"conflicts": report.Conflicts,
		"deferred":  report.Deferred,
	}), "settlement sweep complete")
	return report, errs
}

func (s *Service) promote(ctx context.Context, entry *models.SettlementEntry, now time.Time, report *SweepReport) error {
	applied, err := s.store.Transition(ctx, settlement.TransitionInput{
		EntryID: entry.ID,
		From:    enums.SettlementStatusPending,
		To:      enums.SettlementStatusEligible,
		Reason:  enums.TransitionReasonHoldElapsed,
		At:      now,
	})
	if err != nil {
		return fmt.Errorf("promote entry %s: %w", entry.ID, err)
	}
	if !applied {
		report.Conflicts++
		return nil
	}
	report.Promoted++
	return nil
}

// cancel voids a refunded entry. Eligible entries are only cancelled while
// holding their payout lock so an in-flight transfer resolves first.
func (s *Service) cancel(ctx context.Context, entry *models.SettlementEntry, now time.Time, report *SweepReport) error {
	if entry.Status == enums.SettlementStatusEligible {
		lock, err := s.locker.EntryLock(entry.ID)
		if err != nil {
			return fmt.Errorf("entry lock %s: %w", entry.ID, err)
		}
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire entry lock %s: %w", entry.ID, err)
		}
		if !acquired {
			report.Conflicts++
			return nil
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				s.logg.Warn(s.logg.WithEntryID(ctx, entry.ID.String()), "failed to release entry lock")
			}
		}()
	}

	var applied bool
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		applied, err = s.store.TransitionTx(ctx, tx, settlement.TransitionInput{
			EntryID: entry.ID,
			From:    entry.Status,
			To:      enums.SettlementStatusCancelled,
			Reason:  enums.TransitionReasonOrderRefunded,
			At:      now,
		})
		if err != nil || !applied {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementEntryCancelled,
			AggregateType: enums.AggregateSettlementEntry,
			AggregateID:   entry.ID,
			Data: payloads.EntryCancelledEvent{
				EntryID:     entry.ID,
				SellerID:    entry.SellerID,
				OrderID:     entry.OrderID,
				OrderNumber: entry.OrderNumber,
				Amount:      types.MoneyFromCents(entry.AmountCents),
				CancelledAt: now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("cancel entry %s: %w", entry.ID, err)
	}
	if !applied {
		report.Conflicts++
		return nil
	}
	report.Cancelled++
	return nil
}

func orderIDs(entries []models.SettlementEntry) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.OrderID]; ok {
			continue
		}
		seen[entry.OrderID] = struct{}{}
		ids = append(ids, entry.OrderID)
	}
	return ids
}
