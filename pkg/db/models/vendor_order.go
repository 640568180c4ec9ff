package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// VendorOrder is the read-only projection of the per-vendor order produced from
// a checkout group. The settlement ledger keys entries by CheckoutGroupID.
type VendorOrder struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutGroupID uuid.UUID               `gorm:"column:checkout_group_id;type:uuid;not null"`
	VendorStoreID   uuid.UUID               `gorm:"column:vendor_store_id;type:uuid;not null"`
	Status          enums.VendorOrderStatus `gorm:"column:status;type:text;not null"`
	RefundStatus    enums.RefundStatus      `gorm:"column:refund_status;type:text;not null;default:'none'"`
	OrderNumber     int64                   `gorm:"column:order_number;not null"`
	CanceledAt      *time.Time              `gorm:"column:canceled_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
