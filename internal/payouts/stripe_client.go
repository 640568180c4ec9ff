package payouts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/transfer"

	pkgstripe "github.com/angelmondragon/packfinderz-settlement/pkg/stripe"
)

type createTransferFunc func(params *stripe.TransferParams) (*stripe.Transfer, error)
type findTransferFunc func(ctx context.Context, group, destination string) (*stripe.Transfer, error)

// StripeTransferClient sends payouts as Stripe Connect transfers.
type StripeTransferClient struct {
	create createTransferFunc
	find   findTransferFunc
}

// NewStripeTransferClient wraps the configured Stripe client.
func NewStripeTransferClient(api *pkgstripe.Client) (*StripeTransferClient, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeTransferClient{create: transfer.New, find: findTransferByGroup}, nil
}

func (c *StripeTransferClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return nil, Permanent("seller has no connected account", nil)
	}
	if req.IdempotencyKey == "" {
		return nil, Permanent("idempotency key missing", nil)
	}

	existing, err := c.FindTransfer(ctx, req.TransferGroup, req.Destination)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.Destination),
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripe.String(req.TransferGroup)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddExpand("balance_transaction")
	params.AddMetadata("seller_id", req.SellerID.String())
	params.AddMetadata("payout_key", req.IdempotencyKey)
	params.AddMetadata("entry_count", fmt.Sprintf("%d", len(req.EntryIDs)))

	tr, err := c.create(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return toResult(tr), nil
}

// FindTransfer looks up an unreversed transfer in group. An empty group
// matches nothing.
func (c *StripeTransferClient) FindTransfer(ctx context.Context, group, destination string) (*TransferResult, error) {
	if group == "" || strings.TrimSpace(destination) == "" {
		return nil, nil
	}
	existing, err := c.find(ctx, group, destination)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	if existing == nil {
		return nil, nil
	}
	return toResult(existing), nil
}

func findTransferByGroup(ctx context.Context, group, destination string) (*stripe.Transfer, error) {
	params := &stripe.TransferListParams{
		TransferGroup: stripe.String(group),
		Destination:   stripe.String(destination),
	}
	params.Context = ctx
	params.AddExpand("data.balance_transaction")
	iter := transfer.List(params)
	for iter.Next() {
		tr := iter.Transfer()
		if tr != nil && !tr.Reversed {
			return tr, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func toResult(tr *stripe.Transfer) *TransferResult {
	result := &TransferResult{TransferID: tr.ID}
	if tr.BalanceTransaction != nil {
		result.FeeCents = tr.BalanceTransaction.Fee
	}
	return result
}

// classifyStripeError maps Stripe API errors onto the retry policy. Rate
// limits, provider outages and network failures are transient; rejected
// requests are permanent.
func classifyStripeError(err error) *TransferError {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return AsTransferError(err)
	}
	reason := stripeErr.Msg
	if reason == "" {
		reason = string(stripeErr.Type)
	}
	switch {
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
		return Transient("rate limited: "+reason, err)
	case stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
		return Transient(reason, err)
	case stripeErr.Type == stripe.ErrorTypeAPI:
		return Transient(reason, err)
	case stripeErr.Type == stripe.ErrorTypeIdempotency:
		return Permanent("idempotency conflict: "+reason, err)
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		return Permanent(reason, err)
	case stripeErr.HTTPStatusCode >= http.StatusBadRequest:
		return Permanent(reason, err)
	default:
		return Transient(reason, err)
	}
}
