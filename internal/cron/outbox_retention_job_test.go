package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

func TestOutboxRetentionJobUsesDefaultWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 0, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -outboxRetentionDays), repo.cutoffs[0])
	assert.Equal(t, []int{retentionBatch}, repo.limits)
}

func TestOutboxRetentionJobHonoursConfiguredDays(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 7, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -7), repo.cutoffs[0])
}

func TestOutboxRetentionJobDrainsInBatches(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{backlog: 25}
	job := newOutboxRetentionJob(t, repo, 0, 10)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, repo.limits, 3)
	assert.Zero(t, repo.backlog)
	// every batch shares the cutoff taken at the start of the run
	assert.Equal(t, repo.cutoffs[0], repo.cutoffs[2])
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0, 0)

	assert.ErrorContains(t, job.Run(context.Background()), "boom")
}

func TestOutboxRetentionJobStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{backlog: 100}
	job := newOutboxRetentionJob(t, repo, 0, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, repo.limits)
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, days, batch int) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  days,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok, "got %T", jobIface)
	return job
}

type fakeOutboxRetentionRepo struct {
	backlog int64
	cutoffs []time.Time
	limits  []int
	err     error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	n := min(f.backlog, int64(limit))
	f.backlog -= n
	return n, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
