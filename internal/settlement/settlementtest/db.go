// Package settlementtest provides sqlite fixtures for settlement tests.
package settlementtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  company_name TEXT NOT NULL,
  stripe_account_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS vendor_orders (
  id TEXT PRIMARY KEY,
  checkout_group_id TEXT NOT NULL,
  vendor_store_id TEXT NOT NULL,
  status TEXT NOT NULL,
  refund_status TEXT NOT NULL DEFAULT 'none',
  order_number INTEGER NOT NULL,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS settlement_entries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_number INTEGER NOT NULL,
  seller_id TEXT NOT NULL,
  order_item_id TEXT,
  dedupe_key TEXT NOT NULL,
  amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
  stripe_fee_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  sale_date DATETIME NOT NULL,
  hold_days INTEGER NOT NULL,
  eligible_at DATETIME NOT NULL,
  payment_date DATETIME,
  transfer_id TEXT,
  payout_key TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_attempt_at DATETIME,
  next_attempt_at DATETIME,
  failure_kind TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_settlement_entries_dedupe_key ON settlement_entries (dedupe_key);`,
	`CREATE TABLE IF NOT EXISTS settlement_status_transitions (
  id TEXT PRIMARY KEY,
  entry_id TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  reason TEXT NOT NULL,
  actor TEXT,
  note TEXT,
  at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// NewDB opens an isolated in-memory database with the settlement schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// MustCreateSeller inserts a vendor store. An empty stripeAccountID leaves the
// payout destination unset.
func MustCreateSeller(t *testing.T, db *gorm.DB, stripeAccountID string) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:          uuid.New(),
		Type:        enums.StoreTypeVendor,
		CompanyName: "Test Vendor",
	}
	if stripeAccountID != "" {
		store.StripeAccountID = &stripeAccountID
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return store
}

// MustCreateVendorOrder inserts the vendor order projection for a checkout group.
func MustCreateVendorOrder(t *testing.T, db *gorm.DB, checkoutGroupID, vendorStoreID uuid.UUID, status enums.VendorOrderStatus, refund enums.RefundStatus) *models.VendorOrder {
	t.Helper()
	order := &models.VendorOrder{
		ID:              uuid.New(),
		CheckoutGroupID: checkoutGroupID,
		VendorStoreID:   vendorStoreID,
		Status:          status,
		RefundStatus:    refund,
		OrderNumber:     1001,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create vendor order: %v", err)
	}
	return order
}

// EntryOptions overrides fixture defaults for MustCreateEntry.
type EntryOptions struct {
	OrderID     uuid.UUID
	OrderNumber int64
	SellerID    uuid.UUID
	AmountCents int64
	Status      enums.SettlementStatus
	SaleDate    time.Time
	HoldDays    int
}

// MustCreateEntry inserts a settlement entry directly, bypassing ingestion.
func MustCreateEntry(t *testing.T, db *gorm.DB, opts EntryOptions) *models.SettlementEntry {
	t.Helper()
	if opts.OrderID == uuid.Nil {
		opts.OrderID = uuid.New()
	}
	if opts.SellerID == uuid.Nil {
		opts.SellerID = uuid.New()
	}
	if opts.Status == "" {
		opts.Status = enums.SettlementStatusPending
	}
	if opts.SaleDate.IsZero() {
		opts.SaleDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.HoldDays == 0 {
		opts.HoldDays = 14
	}
	if opts.OrderNumber == 0 {
		opts.OrderNumber = 1001
	}
	entry := &models.SettlementEntry{
		ID:          uuid.New(),
		OrderID:     opts.OrderID,
		OrderNumber: opts.OrderNumber,
		SellerID:    opts.SellerID,
		DedupeKey:   settlement.DedupeKey(opts.OrderID, opts.SellerID, nil),
		AmountCents: opts.AmountCents,
		Currency:    "usd",
		Status:      opts.Status,
		SaleDate:    opts.SaleDate,
		HoldDays:    opts.HoldDays,
		EligibleAt:  settlement.EligibleAt(opts.SaleDate, opts.HoldDays),
		CreatedAt:   opts.SaleDate,
		UpdatedAt:   opts.SaleDate,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create settlement entry: %v", err)
	}
	return entry
}
