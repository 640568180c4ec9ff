package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

const (
	outboxRetentionDays = 30
	// retentionBatch keeps each delete transaction short on a large backlog.
	retentionBatch = 1000
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  int
	BatchSize  int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows older than the
// retention window. Unpublished and DLQ rows are left alone.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.batch <= 0 {
		job.batch = retentionBatch
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	retention int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in batches until a batch comes back short. The cutoff is fixed
// at the start so rows published mid-run are kept.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("outbox retention stopped after %d rows: %w", deleted, err)
		}
		var rows int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			rows, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention: %w", err)
		}
		deleted += rows
		batches++
		if rows < int64(j.batch) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
		"batches":        batches,
	}), "outbox retention cleanup complete")
	return nil
}
