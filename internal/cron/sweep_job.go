package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-settlement/internal/sweeper"
)

type eligibilitySweeper interface {
	Sweep(ctx context.Context, now time.Time) (*sweeper.SweepReport, error)
}

type SweepJobParams struct {
	Sweeper eligibilitySweeper
}

// NewSweepJob promotes entries whose holding window elapsed and cancels
// entries whose order was voided.
func NewSweepJob(params SweepJobParams) (Job, error) {
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &sweepJob{
		sweeper: params.Sweeper,
		now:     time.Now,
	}, nil
}

type sweepJob struct {
	sweeper eligibilitySweeper
	now     func() time.Time
}

func (j *sweepJob) Name() string { return "settlement-eligibility-sweep" }

func (j *sweepJob) Run(ctx context.Context) error {
	// The sweeper logs its own report.
	if _, err := j.sweeper.Sweep(ctx, j.now().UTC()); err != nil {
		return fmt.Errorf("settlement sweep: %w", err)
	}
	return nil
}
