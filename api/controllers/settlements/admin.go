package settlements

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/api/middleware"
	"github.com/angelmondragon/packfinderz-settlement/api/responses"
	"github.com/angelmondragon/packfinderz-settlement/api/validators"
	"github.com/angelmondragon/packfinderz-settlement/internal/payouts"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

const maxNoteLength = 500

// Operations is the admin surface of the payout executor.
type Operations interface {
	Resubmit(ctx context.Context, entryID uuid.UUID, actor string, note *string) (bool, error)
	Cancel(ctx context.Context, entryID uuid.UUID, actor string, note *string) (bool, error)
	ExecutePayout(ctx context.Context, entryID uuid.UUID) (*payouts.PaidOutcome, error)
	ListAttention(ctx context.Context, params pagination.Params) ([]models.SettlementEntry, string, error)
}

// EntryReader loads entries and their audit trail.
type EntryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementEntry, error)
	ListTransitions(ctx context.Context, entryID uuid.UUID) ([]models.SettlementStatusTransition, error)
}

type actionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// EntryView is the admin representation of a ledger entry.
type EntryView struct {
	ID            uuid.UUID                  `json:"id"`
	OrderID       uuid.UUID                  `json:"orderId"`
	OrderNumber   int64                      `json:"orderNumber"`
	SellerID      uuid.UUID                  `json:"sellerId"`
	Amount        types.Money                `json:"amount"`
	Status        enums.SettlementStatus     `json:"status"`
	SaleDate      time.Time                  `json:"saleDate"`
	EligibleAt    time.Time                  `json:"eligibleAt"`
	AttemptCount  int                        `json:"attemptCount"`
	NextAttemptAt *time.Time                 `json:"nextAttemptAt,omitempty"`
	FailureKind   *enums.TransferFailureKind `json:"failureKind,omitempty"`
	FailureReason *string                    `json:"failureReason,omitempty"`
	TransferID    *string                    `json:"transferId,omitempty"`
	PayoutKey     *string                    `json:"payoutKey,omitempty"`
}

// PayoutView reports the transfer that paid an entry.
type PayoutView struct {
	EntryIDs    []uuid.UUID `json:"entryIds"`
	SellerID    uuid.UUID   `json:"sellerId"`
	TransferID  string      `json:"transferId,omitempty"`
	Amount      types.Money `json:"amount"`
	Fee         types.Money `json:"fee"`
	PaidAt      time.Time   `json:"paidAt"`
	AlreadyPaid bool        `json:"alreadyPaid"`
}

// TransitionView is one audit row.
type TransitionView struct {
	From   *enums.SettlementStatus `json:"from"`
	To     enums.SettlementStatus  `json:"to"`
	Reason enums.TransitionReason  `json:"reason"`
	Actor  *string                 `json:"actor,omitempty"`
	Note   *string                 `json:"note,omitempty"`
	At     time.Time               `json:"at"`
}

// AttentionPage lists failed entries that need an operator.
type AttentionPage struct {
	Entries    []EntryView `json:"entries"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// Retry moves a failed entry back to eligible with a fresh attempt budget.
func Retry(ops Operations, entries EntryReader, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(entries, logg, enums.SettlementStatusFailed, ops.Resubmit)
}

// Cancel gives up on a failed entry.
func Cancel(ops Operations, entries EntryReader, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(entries, logg, enums.SettlementStatusFailed, ops.Cancel)
}

type transitionFunc func(ctx context.Context, entryID uuid.UUID, actor string, note *string) (bool, error)

func transitionHandler(entries EntryReader, logg *logger.Logger, from enums.SettlementStatus, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := decodeNote(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.UserIDFromContext(r.Context())
		if actor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing"))
			return
		}

		applied, err := apply(r.Context(), entryID, actor, note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply settlement transition"))
			return
		}

		entry, err := entries.FindByID(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapEntryError(err))
			return
		}
		if !applied {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "settlement entry is not "+string(from)).
				WithDetails(map[string]any{"status": entry.Status}))
			return
		}
		responses.WriteSuccess(w, toEntryView(*entry))
	}
}

// Payout pays one eligible entry now. A paid entry returns its recorded transfer.
func Payout(ops Operations, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := ops.ExecutePayout(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapPayoutError(err))
			return
		}
		responses.WriteSuccess(w, PayoutView{
			EntryIDs:    outcome.EntryIDs,
			SellerID:    outcome.SellerID,
			TransferID:  outcome.TransferID,
			Amount:      types.MoneyFromCents(outcome.AmountCents),
			Fee:         types.MoneyFromCents(outcome.FeeCents),
			PaidAt:      outcome.PaidAt.UTC(),
			AlreadyPaid: outcome.AlreadyPaid,
		})
	}
}

// Transitions returns an entry's audit trail, oldest first.
func Transitions(entries EntryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := entries.FindByID(r.Context(), entryID); err != nil {
			responses.WriteError(r.Context(), logg, w, mapEntryError(err))
			return
		}
		rows, err := entries.ListTransitions(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transitions"))
			return
		}
		views := make([]TransitionView, 0, len(rows))
		for _, row := range rows {
			views = append(views, TransitionView{
				From:   row.FromStatus,
				To:     row.ToStatus,
				Reason: row.Reason,
				Actor:  row.Actor,
				Note:   row.Note,
				At:     row.At.UTC(),
			})
		}
		responses.WriteSuccess(w, views)
	}
}

// Attention pages failed entries that are no longer retried automatically.
func Attention(ops Operations, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		rows, next, err := ops.ListAttention(r.Context(), params)
		if err != nil {
			if errors.Is(err, pagination.ErrInvalidCursor) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts needing attention"))
			return
		}
		page := AttentionPage{Entries: make([]EntryView, 0, len(rows)), NextCursor: next}
		for _, row := range rows {
			page.Entries = append(page.Entries, toEntryView(row))
		}
		responses.WriteSuccess(w, page)
	}
}

func parseEntryID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, "entryId"), "entry id")
}

// decodeNote reads the optional action body.
func decodeNote(r *http.Request) (*string, error) {
	var req actionRequest
	if present, err := validators.DecodeOptionalJSONBody(r, &req); err != nil || !present {
		return nil, err
	}
	note := validators.SanitizeString(req.Note, maxNoteLength)
	if note == "" {
		return nil, nil
	}
	return &note, nil
}

func mapEntryError(err error) error {
	if errors.Is(err, settlement.ErrEntryNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "settlement entry not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement entry")
}

func mapPayoutError(err error) error {
	switch {
	case errors.Is(err, settlement.ErrEntryNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "settlement entry not found")
	case errors.Is(err, payouts.ErrNotEligible):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "settlement entry is not eligible")
	case errors.Is(err, payouts.ErrPayoutInFlight):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payout already in flight")
	case errors.Is(err, payouts.ErrOrderVoided):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order was refunded")
	}
	if transferErr := payouts.AsTransferError(err); transferErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transfer failed").
			WithDetails(map[string]any{"kind": transferErr.Kind, "reason": transferErr.Reason})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payout")
}

func toEntryView(entry models.SettlementEntry) EntryView {
	return EntryView{
		ID:            entry.ID,
		OrderID:       entry.OrderID,
		OrderNumber:   entry.OrderNumber,
		SellerID:      entry.SellerID,
		Amount:        types.MoneyFromCents(entry.AmountCents),
		Status:        entry.Status,
		SaleDate:      entry.SaleDate.UTC(),
		EligibleAt:    entry.EligibleAt.UTC(),
		AttemptCount:  entry.AttemptCount,
		NextAttemptAt: entry.NextAttemptAt,
		FailureKind:   entry.FailureKind,
		FailureReason: entry.FailureReason,
		TransferID:    entry.TransferID,
		PayoutKey:     entry.PayoutKey,
	}
}
