package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-settlement/internal/payouts"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

type payoutRunner interface {
	RunDue(ctx context.Context, now time.Time) (*payouts.RunReport, error)
}

type PayoutJobParams struct {
	Logger   *logger.Logger
	Executor payoutRunner
}

func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("payout executor required")
	}
	return &payoutJob{
		logg:     params.Logger,
		executor: params.Executor,
		now:      time.Now,
	}, nil
}

type payoutJob struct {
	logg     *logger.Logger
	executor payoutRunner
	now      func() time.Time
}

func (j *payoutJob) Name() string { return "settlement-payouts" }

func (j *payoutJob) Run(ctx context.Context) error {
	report, err := j.executor.RunDue(ctx, j.now().UTC())
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"requeued":  report.Requeued,
			"paid":      report.Paid,
			"failed":    report.Failed,
			"skipped":   report.Skipped,
			"cancelled": report.Cancelled,
			"transfers": report.Transfers,
		})
		j.logg.Info(logCtx, "settlement payout run complete")
	}
	if err != nil {
		return fmt.Errorf("settlement payouts: %w", err)
	}
	return nil
}
