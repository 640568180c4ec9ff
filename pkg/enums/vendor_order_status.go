package enums

// VendorOrderStatus mirrors the marketplace vendor_order_status enum. The
// settlement ledger only reads it to detect orders that will never settle.
type VendorOrderStatus string

const (
	VendorOrderStatusCanceled VendorOrderStatus = "canceled"
	VendorOrderStatusRejected VendorOrderStatus = "rejected"
	VendorOrderStatusExpired  VendorOrderStatus = "expired"
)

// VoidOrderStatuses lists vendor order statuses that void a seller's claim.
func VoidOrderStatuses() []VendorOrderStatus {
	return []VendorOrderStatus{
		VendorOrderStatusCanceled,
		VendorOrderStatusRejected,
		VendorOrderStatusExpired,
	}
}

// RefundStatus mirrors vendor_orders.refund_status. Only a full refund voids
// the seller's settlement; a partial refund leaves the entry to settle.
type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "none"
	RefundStatusPartial RefundStatus = "partial"
	RefundStatusFull    RefundStatus = "full"
)
