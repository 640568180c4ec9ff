package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// Store is the read-only projection of the marketplace tenant table used to
// resolve sellers and their payout destination.
type Store struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Type            enums.StoreType `gorm:"column:type;type:text;not null"`
	CompanyName     string          `gorm:"column:company_name;not null"`
	StripeAccountID *string         `gorm:"column:stripe_account_id"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
