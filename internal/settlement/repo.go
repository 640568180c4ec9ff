package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packfinderz-settlement/internal/repo"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
)

// ErrEntryNotFound is returned when no settlement entry matches the lookup.
var ErrEntryNotFound = errors.New("settlement entry not found")

// Repository manages persistence for settlement entries and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertOrFetch(ctx context.Context, entry *models.SettlementEntry) (*models.SettlementEntry, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementEntry, error)
	FindByDedupeKey(ctx context.Context, key string) (*models.SettlementEntry, error)
	FindByPayoutKey(ctx context.Context, key string) ([]models.SettlementEntry, error)
	ListByStatus(ctx context.Context, statuses []enums.SettlementStatus, afterID uuid.UUID, limit int) ([]models.SettlementEntry, error)
	ListDueRetries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.SettlementEntry, error)
	ListAttention(ctx context.Context, maxAttempts int, cursor *pagination.Cursor, limit int) ([]models.SettlementEntry, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.SettlementStatus, updates map[string]any) (bool, error)
	AssignPayoutKey(ctx context.Context, ids []uuid.UUID, key string) (int64, error)
	RecordAttempt(ctx context.Context, ids []uuid.UUID, at time.Time) error
	AppendTransition(ctx context.Context, transition *models.SettlementStatusTransition) error
	ListTransitions(ctx context.Context, entryID uuid.UUID) ([]models.SettlementStatusTransition, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// InsertOrFetch inserts the entry unless its dedupe key already exists, in
// which case the stored row is returned and created is false.
func (r *repository) InsertOrFetch(ctx context.Context, entry *models.SettlementEntry) (*models.SettlementEntry, bool, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	res := r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return entry, true, nil
	}

	existing, err := r.FindByDedupeKey(ctx, entry.DedupeKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementEntry, error) {
	var entry models.SettlementEntry
	if err := r.base.FirstWhere(ctx, &entry, ErrEntryNotFound, "id = ?", id); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByDedupeKey(ctx context.Context, key string) (*models.SettlementEntry, error) {
	var entry models.SettlementEntry
	if err := r.base.FirstWhere(ctx, &entry, ErrEntryNotFound, "dedupe_key = ?", key); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByPayoutKey(ctx context.Context, key string) ([]models.SettlementEntry, error) {
	var entries []models.SettlementEntry
	if err := r.base.DB(ctx).
		Where("payout_key = ?", key).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByStatus pages through entries in the given statuses ordered by id.
// Pass the last id from the previous page as afterID, or uuid.Nil to start.
func (r *repository) ListByStatus(ctx context.Context, statuses []enums.SettlementStatus, afterID uuid.UUID, limit int) ([]models.SettlementEntry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := r.base.DB(ctx).Where("status IN ?", statuses)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var entries []models.SettlementEntry
	if err := query.Order("id ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDueRetries returns transient failures whose backoff has elapsed and
// whose attempt budget is not exhausted.
func (r *repository) ListDueRetries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.SettlementEntry, error) {
	var entries []models.SettlementEntry
	if err := r.base.DB(ctx).
		Where("status = ?", enums.SettlementStatusFailed).
		Where("failure_kind = ?", enums.TransferFailureTransient).
		Where("attempt_count < ?", maxAttempts).
		Where("next_attempt_at IS NOT NULL AND next_attempt_at <= ?", now.UTC()).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAttention returns failed entries that will not be retried automatically.
func (r *repository) ListAttention(ctx context.Context, maxAttempts int, cursor *pagination.Cursor, limit int) ([]models.SettlementEntry, error) {
	query := r.base.DB(ctx).
		Where("status = ?", enums.SettlementStatusFailed).
		Where("(failure_kind = ? OR attempt_count >= ?)", enums.TransferFailurePermanent, maxAttempts)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var entries []models.SettlementEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CompareAndSwap applies updates only while the entry is still in from.
// Zero rows affected means another writer moved the entry first.
func (r *repository) CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.SettlementStatus, updates map[string]any) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.SettlementEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AssignPayoutKey claims unassigned eligible entries for one transfer.
func (r *repository) AssignPayoutKey(ctx context.Context, ids []uuid.UUID, key string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.base.DB(ctx).
		Model(&models.SettlementEntry{}).
		Where("id IN ?", ids).
		Where("status = ?", enums.SettlementStatusEligible).
		Where("payout_key IS NULL").
		Update("payout_key", key)
	return res.RowsAffected, res.Error
}

func (r *repository) RecordAttempt(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Model(&models.SettlementEntry{}).
		Where("id IN ?", ids).
		Where("status = ?", enums.SettlementStatusEligible).
		Updates(map[string]any{
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at.UTC(),
			"updated_at":      at.UTC(),
		}).Error
}

func (r *repository) AppendTransition(ctx context.Context, transition *models.SettlementStatusTransition) error {
	if transition.ID == uuid.Nil {
		transition.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(transition).Error
}

func (r *repository) ListTransitions(ctx context.Context, entryID uuid.UUID) ([]models.SettlementStatusTransition, error) {
	var transitions []models.SettlementStatusTransition
	if err := r.base.DB(ctx).
		Where("entry_id = ?", entryID).
		Order("at ASC").
		Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}
