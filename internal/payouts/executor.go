package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/orders"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/internal/stores"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

var (
	// ErrNotEligible is returned when a payout is requested for an entry
	// that is not eligible.
	ErrNotEligible = errors.New("settlement entry is not eligible for payout")
	// ErrPayoutInFlight is returned when another worker holds the entry lock.
	ErrPayoutInFlight = errors.New("payout already in flight")
	// ErrOrderVoided is returned when every entry of a payout was cancelled
	// because its order was refunded.
	ErrOrderVoided = errors.New("order was refunded before payout")
)

const (
	defaultMaxAttempts     = 5
	defaultTransferTimeout = 30 * time.Second
	defaultBatchSize       = 100

	outcomePaid = "paid"

	refundedAfterTransfer = "order refunded after transfer landed"
)

type ledgerStore interface {
	Repo() settlement.Repository
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Transition(ctx context.Context, in settlement.TransitionInput) (bool, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, in settlement.TransitionInput) (bool, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ExecutorParams wires the payout executor.
type ExecutorParams struct {
	Store           ledgerStore
	Sellers         stores.Directory
	Orders          orders.StatusReader
	Transfers       TransferClient
	Locker          settlement.Locker
	Outbox          outboxEmitter
	Logger          *logger.Logger
	Metrics         *metrics.SettlementMetrics
	MaxAttempts     int
	Backoff         Backoff
	TransferTimeout time.Duration
	BatchSize       int
	BatchTransfers  bool
	Now             func() time.Time
}

// WithPolicy fills the retry and batching fields from the settlement config.
func (p ExecutorParams) WithPolicy(cfg config.SettlementConfig) ExecutorParams {
	p.MaxAttempts = cfg.MaxAttempts
	p.Backoff = Backoff{Base: cfg.RetryBaseDelay, Max: cfg.RetryMaxDelay}
	p.TransferTimeout = cfg.TransferTimeout
	p.BatchSize = cfg.PayoutBatchSize
	p.BatchTransfers = cfg.BatchTransfers
	return p
}

// Executor moves eligible entries to paid through the transfer client.
type Executor struct {
	store           ledgerStore
	sellers         stores.Directory
	orders          orders.StatusReader
	transfers       TransferClient
	locker          settlement.Locker
	outbox          outboxEmitter
	logg            *logger.Logger
	metrics         *metrics.SettlementMetrics
	maxAttempts     int
	backoff         Backoff
	transferTimeout time.Duration
	batchSize       int
	batchTransfers  bool
	now             func() time.Time
}

// PaidOutcome describes the transfer that paid one or more entries.
type PaidOutcome struct {
	EntryIDs    []uuid.UUID
	SellerID    uuid.UUID
	PayoutKey   string
	TransferID  string
	AmountCents int64
	FeeCents    int64
	PaidAt      time.Time
	AlreadyPaid bool
	// CancelledIDs lists members dropped from the transfer because their
	// order was refunded.
	CancelledIDs []uuid.UUID
}

// RunReport summarizes one executor pass.
type RunReport struct {
	Requeued  int
	Paid      int
	Failed    int
	Skipped   int
	Cancelled int
	Transfers int
}

func NewExecutor(params ExecutorParams) (*Executor, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("settlement store required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller directory required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order status reader required")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("transfer client required")
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
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	timeout := params.TransferTimeout
	if timeout <= 0 {
		timeout = defaultTransferTimeout
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Executor{
		store:           params.Store,
		sellers:         params.Sellers,
		orders:          params.Orders,
		transfers:       params.Transfers,
		locker:          params.Locker,
		outbox:          params.Outbox,
		logg:            params.Logger,
		metrics:         params.Metrics,
		maxAttempts:     maxAttempts,
		backoff:         params.Backoff,
		transferTimeout: timeout,
		batchSize:       batch,
		batchTransfers:  params.BatchTransfers,
		now:             now,
	}, nil
}

// MaxAttempts is the automatic attempt budget per entry.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// ExecutePayout transfers an eligible entry's funds. An entry that is
// already paid returns its recorded outcome without calling the transfer
// client. A failed transfer returns a *TransferError after the entry has
// been moved to failed.
func (e *Executor) ExecutePayout(ctx context.Context, entryID uuid.UUID) (*PaidOutcome, error) {
	entry, err := e.store.Repo().FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == enums.SettlementStatusPaid {
		return storedOutcome([]models.SettlementEntry{*entry}), nil
	}
	if entry.Status != enums.SettlementStatusEligible {
		return nil, fmt.Errorf("%w: entry %s is %s", ErrNotEligible, entry.ID, entry.Status)
	}
	key := entry.ID.String()
	if entry.PayoutKey != nil {
		key = *entry.PayoutKey
	}
	return e.executeGroup(ctx, key, []uuid.UUID{entry.ID})
}

// RunDue re-queues transient failures whose backoff elapsed, then pays
// every eligible entry. Transfer failures are recorded on the entries and
// counted; only infrastructure errors are returned.
func (e *Executor) RunDue(ctx context.Context, now time.Time) (*RunReport, error) {
	report := &RunReport{}
	var errs error

	requeued, err := e.requeueDue(ctx, now)
	report.Requeued = requeued
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		page, err := e.store.Repo().ListByStatus(ctx, []enums.SettlementStatus{enums.SettlementStatusEligible}, afterID, e.batchSize)
		if err != nil {
			return report, multierr.Append(errs, fmt.Errorf("list eligible entries: %w", err))
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		for _, group := range e.plan(page) {
			outcome, err := e.executeGroup(ctx, group.key, group.ids)
			var transferErr *TransferError
			switch {
			case err == nil:
				report.Cancelled += len(outcome.CancelledIDs)
				if !outcome.AlreadyPaid {
					report.Paid += len(outcome.EntryIDs)
					if outcome.TransferID != "" {
						report.Transfers++
					}
				}
			case errors.Is(err, ErrOrderVoided):
				report.Cancelled += len(group.ids)
			case errors.Is(err, ErrPayoutInFlight), errors.Is(err, ErrNotEligible):
				report.Skipped += len(group.ids)
			case errors.As(err, &transferErr):
				report.Failed += len(group.ids)
			default:
				errs = multierr.Append(errs, err)
			}
		}

		if len(page) < e.batchSize {
			break
		}
	}
	return report, errs
}

type payoutGroup struct {
	key string
	ids []uuid.UUID
}

// plan groups a page of eligible entries into transfers. Entries that
// already carry a payout key keep it so retries reuse the idempotency key.
func (e *Executor) plan(page []models.SettlementEntry) []payoutGroup {
	groups := []payoutGroup{}
	index := map[string]int{}
	batches := map[uuid.UUID]string{}
	for _, entry := range page {
		var key string
		switch {
		case entry.PayoutKey != nil:
			key = *entry.PayoutKey
		case e.batchTransfers:
			batchKey, ok := batches[entry.SellerID]
			if !ok {
				batchKey = "batch:" + uuid.NewString()
				batches[entry.SellerID] = batchKey
			}
			key = batchKey
		default:
			key = entry.ID.String()
		}
		if i, ok := index[key]; ok {
			groups[i].ids = append(groups[i].ids, entry.ID)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, payoutGroup{key: key, ids: []uuid.UUID{entry.ID}})
	}
	return groups
}

func (e *Executor) requeueDue(ctx context.Context, now time.Time) (int, error) {
	due, err := e.store.Repo().ListDueRetries(ctx, now, e.maxAttempts, e.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due retries: %w", err)
	}
	var errs error
	requeued := 0
	for _, entry := range due {
		applied, err := e.store.Transition(ctx, settlement.TransitionInput{
			EntryID: entry.ID,
			From:    enums.SettlementStatusFailed,
			To:      enums.SettlementStatusEligible,
			Reason:  enums.TransitionReasonRetryScheduled,
			Updates: map[string]any{"next_attempt_at": nil},
			At:      now,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("requeue entry %s: %w", entry.ID, err))
			continue
		}
		if applied {
			requeued++
		}
	}
	return requeued, errs
}

// executeGroup claims candidates under key, locks every member and makes a
// single transfer for them.
func (e *Executor) executeGroup(ctx context.Context, key string, candidates []uuid.UUID) (*PaidOutcome, error) {
	repo := e.store.Repo()
	if _, err := repo.AssignPayoutKey(ctx, candidates, key); err != nil {
		return nil, fmt.Errorf("assign payout key: %w", err)
	}

	members, err := repo.FindByPayoutKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load payout %s: %w", key, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: payout %s has no entries", ErrNotEligible, key)
	}

	locks := make([]settlement.Lock, 0, len(members))
	defer func() {
		for _, lock := range locks {
			if err := lock.Release(ctx); err != nil {
				e.logg.Warn(e.logg.WithField(ctx, "payout_key", key), "failed to release entry lock")
			}
		}
	}()
	for _, member := range members {
		lock, err := e.locker.EntryLock(member.ID)
		if err != nil {
			return nil, fmt.Errorf("entry lock %s: %w", member.ID, err)
		}
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire entry lock %s: %w", member.ID, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: entry %s", ErrPayoutInFlight, member.ID)
		}
		locks = append(locks, lock)
	}

	// Reload under the locks; another worker may have finished first.
	members, err = repo.FindByPayoutKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reload payout %s: %w", key, err)
	}
	paid := filterStatus(members, enums.SettlementStatusPaid)
	if len(paid) > 0 {
		return storedOutcome(paid), nil
	}
	eligible := filterStatus(members, enums.SettlementStatusEligible)
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: payout %s", ErrNotEligible, key)
	}
	// A refund can land after the sweep promoted the entry or while a failed
	// transfer waited out its backoff.
	kept, refunded, err := e.splitVoided(ctx, eligible)
	if err != nil {
		return nil, err
	}
	if len(refunded) > 0 && attempted(eligible) {
		// An earlier attempt may have moved the funds and still reported failure.
		landed, err := e.findLanded(ctx, key, eligible)
		if err != nil {
			return nil, err
		}
		if landed != nil {
			return e.recordLanded(ctx, key, eligible, refunded, landed)
		}
	}
	cancelled, err := e.cancelRefunded(ctx, key, refunded)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: payout %s", ErrOrderVoided, key)
	}
	outcome, err := e.dispatch(ctx, key, kept)
	if outcome != nil {
		outcome.CancelledIDs = cancelled
	}
	return outcome, err
}

// splitVoided separates entries whose order was refunded from the ones still
// payable.
func (e *Executor) splitVoided(ctx context.Context, entries []models.SettlementEntry) ([]models.SettlementEntry, []models.SettlementEntry, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.OrderID)
	}
	voided, err := e.orders.ListVoided(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("read refunded orders: %w", err)
	}
	if len(voided) == 0 {
		return entries, nil, nil
	}
	kept := make([]models.SettlementEntry, 0, len(entries))
	var refunded []models.SettlementEntry
	for _, entry := range entries {
		if voided[orders.SellerOrder{OrderID: entry.OrderID, SellerID: entry.SellerID}] {
			refunded = append(refunded, entry)
			continue
		}
		kept = append(kept, entry)
	}
	return kept, refunded, nil
}

// findLanded asks the provider for a transfer already made under key.
func (e *Executor) findLanded(ctx context.Context, key string, entries []models.SettlementEntry) (*TransferResult, error) {
	seller, err := e.sellers.FindSeller(ctx, entries[0].SellerID)
	if err != nil {
		return nil, fmt.Errorf("lookup seller: %w", err)
	}
	if seller == nil || !seller.HasPayoutDestination() {
		return nil, nil
	}
	landed, err := e.transfers.FindTransfer(ctx, key, seller.StripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("look up transfer %s: %w", key, err)
	}
	return landed, nil
}

// recordLanded marks every member paid with the transfer that moved their
// funds. Refunded members also raise an attention event for recovery.
func (e *Executor) recordLanded(ctx context.Context, key string, entries, refunded []models.SettlementEntry, landed *TransferResult) (*PaidOutcome, error) {
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"seller_id":   entries[0].SellerID.String(),
		"payout_key":  key,
		"transfer_id": landed.TransferID,
		"refunded":    len(refunded),
	})
	e.logg.Warn(logCtx, "transfer landed for refunded order")
	return e.markPaid(ctx, logCtx, key, entries, landed, e.now().UTC(), refunded)
}

// cancelRefunded cancels refunded entries. Callers hold the entry locks.
func (e *Executor) cancelRefunded(ctx context.Context, key string, refunded []models.SettlementEntry) ([]uuid.UUID, error) {
	if len(refunded) == 0 {
		return nil, nil
	}
	now := e.now().UTC()
	cancelled := make([]uuid.UUID, 0, len(refunded))
	err := e.store.WithTx(ctx, func(tx *gorm.DB) error {
		for _, entry := range refunded {
			applied, err := e.store.TransitionTx(ctx, tx, settlement.TransitionInput{
				EntryID: entry.ID,
				From:    enums.SettlementStatusEligible,
				To:      enums.SettlementStatusCancelled,
				Reason:  enums.TransitionReasonOrderRefunded,
				Updates: map[string]any{"next_attempt_at": nil},
				At:      now,
			})
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("entry %s left eligible during payout %s", entry.ID, key)
			}
			if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
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
			}); err != nil {
				return fmt.Errorf("emit entry cancelled: %w", err)
			}
			cancelled = append(cancelled, entry.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel refunded entries: %w", err)
	}
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"payout_key": key,
		"cancelled":  len(cancelled),
	}), "refunded entries cancelled before payout")
	return cancelled, nil
}

func (e *Executor) dispatch(ctx context.Context, key string, entries []models.SettlementEntry) (*PaidOutcome, error) {
	now := e.now().UTC()
	sellerID := entries[0].SellerID
	ids := make([]uuid.UUID, len(entries))
	var total int64
	attempt := 0
	for i, entry := range entries {
		ids[i] = entry.ID
		total += entry.AmountCents
		if entry.AttemptCount+1 > attempt {
			attempt = entry.AttemptCount + 1
		}
	}
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"seller_id":   sellerID.String(),
		"payout_key":  key,
		"attempt":     attempt,
		"entry_count": len(entries),
	})

	if err := e.store.Repo().RecordAttempt(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	if total == 0 {
		// Nothing to move; the entries settle without a transfer.
		return e.markPaid(ctx, logCtx, key, entries, &TransferResult{}, now, nil)
	}

	seller, err := e.sellers.FindSeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("lookup seller: %w", err)
	}
	if seller == nil || !seller.HasPayoutDestination() {
		return nil, e.markFailed(ctx, logCtx, entries, attempt, Permanent("seller has no payout destination", nil), now)
	}

	transferCtx, cancel := context.WithTimeout(ctx, e.transferTimeout)
	started := time.Now()
	result, err := e.transfers.Transfer(transferCtx, TransferRequest{
		SellerID:       sellerID,
		Destination:    seller.StripeAccountID,
		AmountCents:    total,
		Currency:       entries[0].Currency,
		IdempotencyKey: key,
		TransferGroup:  key,
		EntryIDs:       ids,
	})
	cancel()
	e.metrics.ObserveTransfer(time.Since(started))
	if err != nil {
		return nil, e.markFailed(ctx, logCtx, entries, attempt, AsTransferError(err), now)
	}
	return e.markPaid(ctx, logCtx, key, entries, result, now, nil)
}

// markPaid records result against entries. Members of refunded also get an
// attention event since their order no longer owes the seller.
func (e *Executor) markPaid(ctx, logCtx context.Context, key string, entries []models.SettlementEntry, result *TransferResult, now time.Time, refunded []models.SettlementEntry) (*PaidOutcome, error) {
	needsRecovery := make(map[uuid.UUID]bool, len(refunded))
	for _, entry := range refunded {
		needsRecovery[entry.ID] = true
	}
	amounts := make([]int64, len(entries))
	for i, entry := range entries {
		amounts[i] = entry.AmountCents
	}
	fees := splitFee(result.FeeCents, amounts)

	var transferID *string
	if result.TransferID != "" {
		id := result.TransferID
		transferID = &id
	}

	outcome := &PaidOutcome{
		SellerID:   entries[0].SellerID,
		PayoutKey:  key,
		TransferID: result.TransferID,
		FeeCents:   result.FeeCents,
		PaidAt:     now,
	}
	err := e.store.WithTx(ctx, func(tx *gorm.DB) error {
		for i, entry := range entries {
			applied, err := e.store.TransitionTx(ctx, tx, settlement.TransitionInput{
				EntryID: entry.ID,
				From:    enums.SettlementStatusEligible,
				To:      enums.SettlementStatusPaid,
				Reason:  enums.TransitionReasonTransferSucceeded,
				Updates: map[string]any{
					"transfer_id":      transferID,
					"stripe_fee_cents": fees[i],
					"payment_date":     now,
					"next_attempt_at":  nil,
					"failure_kind":     nil,
					"failure_reason":   nil,
				},
				At: now,
			})
			if err != nil {
				return err
			}
			if !applied {
				return fmt.Errorf("entry %s left eligible during payout %s", entry.ID, key)
			}
			if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSettlementPayoutPaid,
				AggregateType: enums.AggregateSettlementEntry,
				AggregateID:   entry.ID,
				Data: payloads.PayoutPaidEvent{
					EntryID:     entry.ID,
					SellerID:    entry.SellerID,
					OrderID:     entry.OrderID,
					OrderNumber: entry.OrderNumber,
					Amount:      types.MoneyFromCents(entry.AmountCents),
					StripeFee:   types.MoneyFromCents(fees[i]),
					TransferID:  result.TransferID,
					PaidAt:      now,
				},
				OccurredAt: now,
			}); err != nil {
				return fmt.Errorf("emit payout paid: %w", err)
			}
			if needsRecovery[entry.ID] {
				if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventSettlementPayoutAttention,
					AggregateType: enums.AggregateSettlementEntry,
					AggregateID:   entry.ID,
					Data: payloads.PayoutAttentionEvent{
						EntryID:       entry.ID,
						SellerID:      entry.SellerID,
						OrderNumber:   entry.OrderNumber,
						Amount:        types.MoneyFromCents(entry.AmountCents),
						AttemptCount:  entry.AttemptCount,
						FailureReason: refundedAfterTransfer,
					},
					OccurredAt: now,
				}); err != nil {
					return fmt.Errorf("emit payout attention: %w", err)
				}
			}
			outcome.EntryIDs = append(outcome.EntryIDs, entry.ID)
			outcome.AmountCents += entry.AmountCents
		}
		return nil
	})
	if err != nil {
		// The transfer went through; the next run replays the same key and
		// records it.
		e.logg.Error(logCtx, "failed to record paid payout", err)
		return nil, fmt.Errorf("record payout %s: %w", key, err)
	}
	e.metrics.IncPayoutAttempt(outcomePaid)
	e.logg.Info(e.logg.WithField(logCtx, "transfer_id", result.TransferID), "payout paid")
	return outcome, nil
}

// markFailed moves entries to failed and returns the transfer error. Entries
// that exhausted their attempts or failed permanently raise an attention
// event instead of a retry.
func (e *Executor) markFailed(ctx, logCtx context.Context, entries []models.SettlementEntry, attempt int, transferErr *TransferError, now time.Time) error {
	exhausted := attempt >= e.maxAttempts
	attention := transferErr.Kind == enums.TransferFailurePermanent || exhausted

	var nextAttempt *time.Time
	if !attention {
		next := now.Add(e.backoff.Delay(attempt))
		nextAttempt = &next
	}
	reason := transferErr.Reason
	kind := transferErr.Kind

	err := e.store.WithTx(ctx, func(tx *gorm.DB) error {
		for _, entry := range entries {
			applied, err := e.store.TransitionTx(ctx, tx, settlement.TransitionInput{
				EntryID: entry.ID,
				From:    enums.SettlementStatusEligible,
				To:      enums.SettlementStatusFailed,
				Reason:  enums.TransitionReasonTransferFailed,
				Note:    &reason,
				Updates: map[string]any{
					"failure_kind":    kind,
					"failure_reason":  reason,
					"next_attempt_at": nextAttempt,
				},
				At: now,
			})
			if err != nil {
				return err
			}
			if !applied || !attention {
				continue
			}
			if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSettlementPayoutAttention,
				AggregateType: enums.AggregateSettlementEntry,
				AggregateID:   entry.ID,
				Data: payloads.PayoutAttentionEvent{
					EntryID:       entry.ID,
					SellerID:      entry.SellerID,
					OrderNumber:   entry.OrderNumber,
					Amount:        types.MoneyFromCents(entry.AmountCents),
					AttemptCount:  attempt,
					FailureKind:   kind,
					FailureReason: reason,
				},
				OccurredAt: now,
			}); err != nil {
				return fmt.Errorf("emit payout attention: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record failed payout: %w", err)
	}

	e.metrics.IncPayoutAttempt(string(kind))
	failCtx := e.logg.WithFields(logCtx, map[string]any{
		"failure_kind":   kind,
		"failure_reason": reason,
	})
	if attention {
		e.logg.Error(failCtx, "payout needs attention", transferErr)
	} else {
		e.logg.Warn(e.logg.WithField(failCtx, "next_attempt_at", nextAttempt.Format(time.RFC3339)), "payout failed, retry scheduled")
	}
	return transferErr
}

// Resubmit returns a failed entry to eligible with a fresh attempt budget.
// The payout key is kept so a transfer that did land is never repeated.
func (e *Executor) Resubmit(ctx context.Context, entryID uuid.UUID, actor string, note *string) (bool, error) {
	return e.store.Transition(ctx, settlement.TransitionInput{
		EntryID: entryID,
		From:    enums.SettlementStatusFailed,
		To:      enums.SettlementStatusEligible,
		Reason:  enums.TransitionReasonAdminResubmitted,
		Actor:   &actor,
		Note:    note,
		Updates: map[string]any{
			"attempt_count":   0,
			"next_attempt_at": nil,
		},
		At: e.now(),
	})
}

// Cancel gives up on a failed entry.
func (e *Executor) Cancel(ctx context.Context, entryID uuid.UUID, actor string, note *string) (bool, error) {
	return e.store.Transition(ctx, settlement.TransitionInput{
		EntryID: entryID,
		From:    enums.SettlementStatusFailed,
		To:      enums.SettlementStatusCancelled,
		Reason:  enums.TransitionReasonAdminCancelled,
		Actor:   &actor,
		Note:    note,
		Updates: map[string]any{"next_attempt_at": nil},
		At:      e.now(),
	})
}

// ListAttention pages failed entries that will not be retried automatically.
func (e *Executor) ListAttention(ctx context.Context, params pagination.Params) ([]models.SettlementEntry, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
		cursor = parsed
	}
	rows, err := e.store.Repo().ListAttention(ctx, e.maxAttempts, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(entry models.SettlementEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: entry.CreatedAt, ID: entry.ID}
	})
	return rows, next, nil
}

// attempted reports whether any entry was already sent to the provider.
func attempted(entries []models.SettlementEntry) bool {
	for _, entry := range entries {
		if entry.LastAttemptAt != nil {
			return true
		}
	}
	return false
}

func filterStatus(entries []models.SettlementEntry, status enums.SettlementStatus) []models.SettlementEntry {
	out := make([]models.SettlementEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	return out
}

func storedOutcome(entries []models.SettlementEntry) *PaidOutcome {
	first := entries[0]
	outcome := &PaidOutcome{
		SellerID:    first.SellerID,
		AlreadyPaid: true,
	}
	if first.PayoutKey != nil {
		outcome.PayoutKey = *first.PayoutKey
	}
	if first.TransferID != nil {
		outcome.TransferID = *first.TransferID
	}
	if first.PaymentDate != nil {
		outcome.PaidAt = *first.PaymentDate
	}
	for _, entry := range entries {
		outcome.EntryIDs = append(outcome.EntryIDs, entry.ID)
		outcome.AmountCents += entry.AmountCents
		outcome.FeeCents += entry.StripeFeeCents
	}
	return outcome
}
