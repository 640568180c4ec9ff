package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/repo"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// PayoutQuery filters a seller's payout history.
type PayoutQuery struct {
	SellerID uuid.UUID
	Statuses []enums.SettlementStatus
	From     *time.Time
	To       *time.Time
	Offset   int
	Limit    int
}

type statusTotal struct {
	Status enums.SettlementStatus
	Cents  int64
	Count  int64
}

// Repository runs the read-only ledger queries behind the vendor dashboard.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to earnings queries.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// TotalsByStatus sums amounts per status in one statement so the totals come
// from a single committed snapshot.
func (r *Repository) TotalsByStatus(ctx context.Context, sellerID uuid.UUID) (map[enums.SettlementStatus]statusTotal, error) {
	var rows []statusTotal
	if err := r.base.DB(ctx).
		Model(&models.SettlementEntry{}).
		Select("status, COALESCE(SUM(amount_cents), 0) AS cents, COUNT(*) AS count").
		Where("seller_id = ?", sellerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.SettlementStatus]statusTotal, len(rows))
	for _, row := range rows {
		out[row.Status] = row
	}
	return out, nil
}

// ListPayouts returns one page ordered by sale date, newest first, plus the
// total number of matching rows.
func (r *Repository) ListPayouts(ctx context.Context, q PayoutQuery) ([]models.SettlementEntry, int64, error) {
	query := r.base.DB(ctx).
		Model(&models.SettlementEntry{}).
		Where("seller_id = ?", q.SellerID)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.From != nil {
		query = query.Where("sale_date >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("sale_date <= ?", q.To.UTC())
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SettlementEntry
	if err := query.
		Order("sale_date DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListOpen returns pending and eligible entries, soonest eligible first.
func (r *Repository) ListOpen(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SettlementEntry, error) {
	var rows []models.SettlementEntry
	if err := r.base.DB(ctx).
		Where("seller_id = ?", sellerID).
		Where("status IN ?", []enums.SettlementStatus{enums.SettlementStatusPending, enums.SettlementStatusEligible}).
		Order("eligible_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
