package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/repo"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// Seller is the settlement view of a vendor store.
type Seller struct {
	ID              uuid.UUID
	CompanyName     string
	StripeAccountID string
}

// HasPayoutDestination reports whether transfers can be sent to the seller.
func (s Seller) HasPayoutDestination() bool {
	return s.StripeAccountID != ""
}

// Directory resolves sellers referenced by ledger entries.
type Directory interface {
	FindSellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Seller, error)
	FindSeller(ctx context.Context, id uuid.UUID) (*Seller, error)
}

// Repository reads vendor stores from the marketplace schema.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to store lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// FindSellers returns the vendor stores among ids. Missing or non-vendor ids
// are absent from the result.
func (r *Repository) FindSellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Seller, error) {
	out := make(map[uuid.UUID]Seller, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Store
	if err := r.base.DB(ctx).
		Where("id IN ?", ids).
		Where("type = ?", enums.StoreTypeVendor).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = toSeller(row)
	}
	return out, nil
}

// FindSeller loads one vendor store, returning nil when it does not exist.
func (r *Repository) FindSeller(ctx context.Context, id uuid.UUID) (*Seller, error) {
	sellers, err := r.FindSellers(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	seller, ok := sellers[id]
	if !ok {
		return nil, nil
	}
	return &seller, nil
}

func toSeller(row models.Store) Seller {
	seller := Seller{ID: row.ID, CompanyName: row.CompanyName}
	if row.StripeAccountID != nil {
		seller.StripeAccountID = *row.StripeAccountID
	}
	return seller
}
