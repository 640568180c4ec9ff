package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionInput describes one compare-and-swap status change. Updates
// holds extra columns written in the same statement.
type TransitionInput struct {
	EntryID uuid.UUID
	From    enums.SettlementStatus
	To      enums.SettlementStatus
	Reason  enums.TransitionReason
	Actor   *string
	Note    *string
	Updates map[string]any
	At      time.Time
}

// StoreParams wires a Store.
type StoreParams struct {
	Repo    Repository
	DB      txRunner
	Metrics *metrics.SettlementMetrics
	Now     func() time.Time
}

// Store applies state machine transitions and keeps the audit trail in step
// with the entry row.
type Store struct {
	repo    Repository
	db      txRunner
	metrics *metrics.SettlementMetrics
	now     func() time.Time
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		repo:    params.Repo,
		db:      params.DB,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Repo exposes the underlying repository for read paths.
func (s *Store) Repo() Repository {
	return s.repo
}

// WithTx runs fn inside a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithTx(ctx, fn)
}

// Transition applies in inside its own transaction. It reports false when
// the entry was no longer in in.From.
func (s *Store) Transition(ctx context.Context, in TransitionInput) (bool, error) {
	var applied bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		applied, err = s.TransitionTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// TransitionTx applies in using the caller's transaction.
func (s *Store) TransitionTx(ctx context.Context, tx *gorm.DB, in TransitionInput) (bool, error) {
	if in.EntryID == uuid.Nil {
		return false, fmt.Errorf("entry id is required")
	}
	if in.From == None {
		return false, fmt.Errorf("%w: creation is recorded with RecordCreatedTx", ErrInvalidTransition)
	}
	if err := ValidateTransition(in.From, in.To, in.Reason); err != nil {
		return false, err
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	updates := make(map[string]any, len(in.Updates)+2)
	for k, v := range in.Updates {
		updates[k] = v
	}
	updates["status"] = in.To
	updates["updated_at"] = at

	repo := s.repo.WithTx(tx)
	applied, err := repo.CompareAndSwap(ctx, in.EntryID, in.From, updates)
	if err != nil {
		return false, fmt.Errorf("update settlement entry: %w", err)
	}
	if !applied {
		return false, nil
	}

	from := in.From
	if err := repo.AppendTransition(ctx, &models.SettlementStatusTransition{
		ID:         uuid.New(),
		EntryID:    in.EntryID,
		FromStatus: &from,
		ToStatus:   in.To,
		Reason:     in.Reason,
		Actor:      in.Actor,
		Note:       in.Note,
		At:         at,
	}); err != nil {
		return false, fmt.Errorf("append transition: %w", err)
	}
	s.metrics.IncTransition(string(in.From), string(in.To))
	return true, nil
}

// RecordCreatedTx appends the none -> pending audit row for a new entry.
func (s *Store) RecordCreatedTx(ctx context.Context, tx *gorm.DB, entry *models.SettlementEntry) error {
	if err := ValidateTransition(None, entry.Status, enums.TransitionReasonIngested); err != nil {
		return err
	}
	if err := s.repo.WithTx(tx).AppendTransition(ctx, &models.SettlementStatusTransition{
		ID:       uuid.New(),
		EntryID:  entry.ID,
		ToStatus: entry.Status,
		Reason:   enums.TransitionReasonIngested,
		At:       entry.CreatedAt.UTC(),
	}); err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	s.metrics.IncTransition(string(None), string(entry.Status))
	return nil
}
