package cron

import (
	"context"
	"log/slog"
	"time"
)

// ReleaseChecker releases every batch whose release instant has passed.
type ReleaseChecker interface {
	CheckAndReleaseDueBatches(ctx context.Context, now time.Time) ([]string, error)
}

type ReleaseJobs struct {
	checker  ReleaseChecker
	interval time.Duration
	now      func() time.Time
}

func NewReleaseJobs(checker ReleaseChecker, interval time.Duration) *ReleaseJobs {
	if interval <= 0 {
		interval = time.Second
	}
	return &ReleaseJobs{
		checker:  checker,
		interval: interval,
		now:      time.Now,
	}
}

func (j *ReleaseJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("release_due_batches", j.interval, j.ReleaseDueBatches)
}

// ReleaseDueBatches is one release tick
func (j *ReleaseJobs) ReleaseDueBatches(ctx context.Context) error {
	released, err := j.checker.CheckAndReleaseDueBatches(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	if len(released) > 0 {
		slog.Info("Cron: Released payroll batches", "count", len(released), "batch_ids", released)
	}
	return nil
}
