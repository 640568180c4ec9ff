package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// SettlementStatusTransition is an append-only audit row. FromStatus is nil
// for the creation transition.
type SettlementStatusTransition struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	EntryID    uuid.UUID               `gorm:"column:entry_id;type:uuid;not null"`
	FromStatus *enums.SettlementStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.SettlementStatus  `gorm:"column:to_status;type:text;not null"`
	Reason     enums.TransitionReason  `gorm:"column:reason;type:text;not null"`
	Actor      *string                 `gorm:"column:actor"`
	Note       *string                 `gorm:"column:note"`
	At         time.Time               `gorm:"column:at;not null"`
}

func (SettlementStatusTransition) TableName() string { return "settlement_status_transitions" }
