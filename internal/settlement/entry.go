package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

// EligibleAt is the end of the holding window for a sale.
func EligibleAt(saleDate time.Time, holdDays int) time.Time {
	return saleDate.Add(time.Duration(holdDays) * day)
}

// DedupeKey is the natural key of a seller's claim on an order. The order
// item is part of the key only when the allocation names one.
func DedupeKey(orderID, sellerID uuid.UUID, orderItemID *uuid.UUID) string {
	if orderItemID == nil || *orderItemID == uuid.Nil {
		return fmt.Sprintf("%s:%s", orderID, sellerID)
	}
	return fmt.Sprintf("%s:%s:%s", orderID, sellerID, *orderItemID)
}
