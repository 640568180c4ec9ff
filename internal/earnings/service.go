package earnings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/internal/sweeper"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

const defaultPendingSalesLimit = 500

// Summary totals a seller's earnings.
type Summary struct {
	TotalEarnings   types.Money `json:"totalEarnings"`
	PendingEarnings types.Money `json:"pendingEarnings"`
	PaidEarnings    types.Money `json:"paidEarnings"`
}

// PayoutFilter narrows a payout history request.
type PayoutFilter struct {
	Status *enums.SettlementStatus
	From   *time.Time
	To     *time.Time
}

// OrderRef is the order reference shown next to a payout.
type OrderRef struct {
	OrderNumber int64 `json:"orderNumber"`
}

// Payout is one ledger entry as a vendor sees it.
type Payout struct {
	ID               uuid.UUID              `json:"_id"`
	Amount           types.Money            `json:"amount"`
	Status           enums.SettlementStatus `json:"status"`
	SaleDate         time.Time              `json:"saleDate"`
	Order            OrderRef               `json:"orderId"`
	StripeFee        *types.Money           `json:"stripeFee,omitempty"`
	PaymentDate      *time.Time             `json:"paymentDate,omitempty"`
	StripeTransferID *string                `json:"stripeTransferId,omitempty"`
}

// PayoutPage is an offset-paginated payout history.
type PayoutPage struct {
	Payouts      []Payout `json:"payouts"`
	TotalPayouts int64    `json:"totalPayouts"`
	CurrentPage  int      `json:"currentPage"`
	TotalPages   int      `json:"totalPages"`
	HasMore      bool     `json:"hasMore"`
}

// PendingSale is an open entry with its holding window countdown.
type PendingSale struct {
	ID          uuid.UUID              `json:"_id"`
	Amount      types.Money            `json:"amount"`
	OrderNumber int64                  `json:"orderNumber"`
	Status      enums.SettlementStatus `json:"status"`
	SaleDate    time.Time              `json:"saleDate"`
	sweeper.CountdownView
}

// PendingSales lists open entries, soonest payout first. Count and
// TotalPendingAmount cover every open entry; Truncated is set when the row
// list was capped below Count.
type PendingSales struct {
	Count              int64         `json:"count"`
	TotalPendingAmount types.Money   `json:"totalPendingAmount"`
	PendingSales       []PendingSale `json:"pendingSales"`
	Truncated          bool          `json:"truncated,omitempty"`
}

type reader interface {
	TotalsByStatus(ctx context.Context, sellerID uuid.UUID) (map[enums.SettlementStatus]statusTotal, error)
	ListPayouts(ctx context.Context, q PayoutQuery) ([]models.SettlementEntry, int64, error)
	ListOpen(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SettlementEntry, error)
}

// Service is the read-only settlement query surface.
type Service interface {
	GetSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error)
	ListPayouts(ctx context.Context, sellerID uuid.UUID, filter PayoutFilter, page pagination.OffsetParams) (*PayoutPage, error)
	ListPendingSales(ctx context.Context, sellerID uuid.UUID) (*PendingSales, error)
}

type service struct {
	repo              reader
	now               func() time.Time
	pendingSalesLimit int
}

// NewService builds the query service. pendingSalesLimit caps the rows
// returned by ListPendingSales; totals always cover every open entry.
func NewService(repo reader, pendingSalesLimit int, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	if pendingSalesLimit <= 0 {
		pendingSalesLimit = defaultPendingSalesLimit
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now, pendingSalesLimit: pendingSalesLimit}, nil
}

func (s *service) GetSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error) {
	totals, err := s.repo.TotalsByStatus(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings summary")
	}
	pending := totals[enums.SettlementStatusPending].Cents + totals[enums.SettlementStatusEligible].Cents
	paid := totals[enums.SettlementStatusPaid].Cents
	var all int64
	for status, total := range totals {
		if status != enums.SettlementStatusCancelled {
			all += total.Cents
		}
	}
	return &Summary{
		TotalEarnings:   types.MoneyFromCents(all),
		PendingEarnings: types.MoneyFromCents(pending),
		PaidEarnings:    types.MoneyFromCents(paid),
	}, nil
}

func (s *service) ListPayouts(ctx context.Context, sellerID uuid.UUID, filter PayoutFilter, page pagination.OffsetParams) (*PayoutPage, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	page = page.Normalize()
	q := PayoutQuery{
		SellerID: sellerID,
		From:     filter.From,
		To:       filter.To,
		Offset:   page.Offset(),
		Limit:    page.Limit,
	}
	if filter.Status != nil {
		if !filter.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		q.Statuses = []enums.SettlementStatus{*filter.Status}
	}

	rows, total, err := s.repo.ListPayouts(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	payouts := make([]Payout, 0, len(rows))
	for _, row := range rows {
		payouts = append(payouts, toPayout(row))
	}
	totalPages := pagination.TotalPages(total, page.Limit)
	return &PayoutPage{
		Payouts:      payouts,
		TotalPayouts: total,
		CurrentPage:  page.Page,
		TotalPages:   totalPages,
		HasMore:      pagination.HasMore(page.Page, totalPages),
	}, nil
}

func (s *service) ListPendingSales(ctx context.Context, sellerID uuid.UUID) (*PendingSales, error) {
	totals, err := s.repo.TotalsByStatus(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending totals")
	}
	rows, err := s.repo.ListOpen(ctx, sellerID, s.pendingSalesLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending sales")
	}

	now := s.now().UTC()
	sales := make([]PendingSale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, PendingSale{
			ID:            row.ID,
			Amount:        types.MoneyFromCents(row.AmountCents),
			OrderNumber:   row.OrderNumber,
			Status:        row.Status,
			SaleDate:      row.SaleDate.UTC(),
			CountdownView: sweeper.Countdown(row.SaleDate.UTC(), row.HoldDays, now),
		})
	}
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].DaysRemaining < sales[j].DaysRemaining
	})

	pending := totals[enums.SettlementStatusPending]
	eligible := totals[enums.SettlementStatusEligible]
	count := pending.Count + eligible.Count
	return &PendingSales{
		Count:              count,
		TotalPendingAmount: types.MoneyFromCents(pending.Cents + eligible.Cents),
		PendingSales:       sales,
		Truncated:          int64(len(sales)) < count,
	}, nil
}

func toPayout(row models.SettlementEntry) Payout {
	payout := Payout{
		ID:       row.ID,
		Amount:   types.MoneyFromCents(row.AmountCents),
		Status:   row.Status,
		SaleDate: row.SaleDate.UTC(),
		Order:    OrderRef{OrderNumber: row.OrderNumber},
	}
	if row.Status == enums.SettlementStatusPaid {
		fee := types.MoneyFromCents(row.StripeFeeCents)
		payout.StripeFee = &fee
		payout.PaymentDate = row.PaymentDate
		payout.StripeTransferID = row.TransferID
	}
	return payout
}
