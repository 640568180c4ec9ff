package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// SettlementEntry is one seller's claim on one paid order.
type SettlementEntry struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	OrderNumber    int64                      `gorm:"column:order_number;not null"`
	SellerID       uuid.UUID                  `gorm:"column:seller_id;type:uuid;not null"`
	OrderItemID    *uuid.UUID                 `gorm:"column:order_item_id;type:uuid"`
	DedupeKey      string                     `gorm:"column:dedupe_key;not null;uniqueIndex:ux_settlement_entries_dedupe_key"`
	AmountCents    int64                      `gorm:"column:amount_cents;not null"`
	StripeFeeCents int64                      `gorm:"column:stripe_fee_cents;not null;default:0"`
	Currency       string                     `gorm:"column:currency;not null"`
	Status         enums.SettlementStatus     `gorm:"column:status;type:text;not null"`
	SaleDate       time.Time                  `gorm:"column:sale_date;not null"`
	HoldDays       int                        `gorm:"column:hold_days;not null"`
	EligibleAt     time.Time                  `gorm:"column:eligible_at;not null"`
	PaymentDate    *time.Time                 `gorm:"column:payment_date"`
	TransferID     *string                    `gorm:"column:transfer_id"`
	PayoutKey      *string                    `gorm:"column:payout_key"`
	AttemptCount   int                        `gorm:"column:attempt_count;not null;default:0"`
	LastAttemptAt  *time.Time                 `gorm:"column:last_attempt_at"`
	NextAttemptAt  *time.Time                 `gorm:"column:next_attempt_at"`
	FailureKind    *enums.TransferFailureKind `gorm:"column:failure_kind;type:text"`
	FailureReason  *string                    `gorm:"column:failure_reason"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SettlementEntry) TableName() string { return "settlement_entries" }
