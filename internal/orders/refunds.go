package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/repo"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// SellerOrder identifies one vendor's part of a checkout group.
type SellerOrder struct {
	OrderID  uuid.UUID
	SellerID uuid.UUID
}

// StatusReader reports which seller orders will never settle.
type StatusReader interface {
	ListVoided(ctx context.Context, orderIDs []uuid.UUID) (map[SellerOrder]bool, error)
}

// Repository reads vendor order state owned by the order subsystem.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to vendor order lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// ListVoided returns the seller orders among orderIDs that were fully
// refunded or ended in a void status.
func (r *Repository) ListVoided(ctx context.Context, orderIDs []uuid.UUID) (map[SellerOrder]bool, error) {
	out := make(map[SellerOrder]bool)
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []models.VendorOrder
	if err := r.base.DB(ctx).
		Select("checkout_group_id", "vendor_store_id").
		Where("checkout_group_id IN ?", orderIDs).
		Where("(refund_status = ? OR status IN ?)", enums.RefundStatusFull, enums.VoidOrderStatuses()).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[SellerOrder{OrderID: row.CheckoutGroupID, SellerID: row.VendorStoreID}] = true
	}
	return out, nil
}
