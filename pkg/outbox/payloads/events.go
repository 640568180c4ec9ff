package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

// OrderPaidEvent is published by checkout once a multi-vendor order is paid.
// Allocations are already split per seller.
type OrderPaidEvent struct {
	OrderID     uuid.UUID             `json:"orderId"`
	OrderNumber int64                 `json:"orderNumber"`
	PaidAt      time.Time             `json:"paidAt"`
	Allocations []OrderPaidAllocation `json:"allocations"`
}

// OrderPaidAllocation is one seller's share of the order.
type OrderPaidAllocation struct {
	SellerID    uuid.UUID       `json:"sellerId"`
	OrderItemID *uuid.UUID      `json:"orderItemId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayoutPaidEvent tells the notification service a vendor received funds.
type PayoutPaidEvent struct {
	EntryID     uuid.UUID   `json:"entryId"`
	SellerID    uuid.UUID   `json:"sellerId"`
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber int64       `json:"orderNumber"`
	Amount      types.Money `json:"amount"`
	StripeFee   types.Money `json:"stripeFee"`
	TransferID  string      `json:"transferId"`
	PaidAt      time.Time   `json:"paidAt"`
}

// PayoutAttentionEvent flags a failed payout that needs an operator.
type PayoutAttentionEvent struct {
	EntryID       uuid.UUID                 `json:"entryId"`
	SellerID      uuid.UUID                 `json:"sellerId"`
	OrderNumber   int64                     `json:"orderNumber"`
	Amount        types.Money               `json:"amount"`
	AttemptCount  int                       `json:"attemptCount"`
	FailureKind   enums.TransferFailureKind `json:"failureKind,omitempty"`
	FailureReason string                    `json:"failureReason"`
}

// AllocationRejectedEvent reports an order paid event the ledger refused.
type AllocationRejectedEvent struct {
	OrderID     uuid.UUID             `json:"orderId"`
	OrderNumber int64                 `json:"orderNumber"`
	Reason      string                `json:"reason"`
	Allocations []OrderPaidAllocation `json:"allocations"`
}

// EntryCancelledEvent reports a seller claim voided by a refund.
type EntryCancelledEvent struct {
	EntryID     uuid.UUID   `json:"entryId"`
	SellerID    uuid.UUID   `json:"sellerId"`
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber int64       `json:"orderNumber"`
	Amount      types.Money `json:"amount"`
	CancelledAt time.Time   `json:"cancelledAt"`
}
