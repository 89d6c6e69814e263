package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
)

const (
	weeklyReleaseDelay    = time.Hour
	firstHalfReleaseDay   = 4
	secondHalfReleaseDay  = 19
	defaultReleaseLockTTL = 5 * time.Minute

	EventPayrollReleased = "payroll.released"
)

// ComputeReleaseInstant returns when an approved batch becomes released.
// Weekly batches release one hour after creation. Semi-monthly batches release
// at the start of day 4 (cutoff starting on or before the 15th) or day 19 of
// the cutoff month, in loc. A semi-monthly batch without a structured cutoff
// has no release instant and is never auto-released.
func ComputeReleaseInstant(batch *payroll.Batch, loc *time.Location) (*time.Time, error) {
	switch batch.PayrollType {
	case payroll.PayrollTypeWeekly:
		t := batch.CreatedAt.Add(weeklyReleaseDelay)
		return &t, nil
	case payroll.PayrollTypeSemiMonthly:
		if batch.Cutoff == nil {
			return nil, fmt.Errorf("%w: %q", payroll.ErrUnparseableCutoff, batch.CutoffLabel)
		}
		day := secondHalfReleaseDay
		if batch.Cutoff.IsFirstHalf() {
			day = firstHalfReleaseDay
		}
		t := time.Date(batch.Cutoff.Year, batch.Cutoff.Month, day, 0, 0, 0, 0, loc)
		return &t, nil
	}
	return nil, payroll.ErrInvalidPayrollType
}

// ReleaseNotifier is told about every batch that was released.
type ReleaseNotifier interface {
	Broadcast(name string, data any)
}

// ReleaseScheduler releases approved batches once their release instant passes.
// A per-batch lock allows one attempt at a time, whatever instant the caller
// computed; the persisted released flag, set by compare-and-set, keeps a batch
// from being released twice.
type ReleaseScheduler struct {
	batches    payroll.PayrollRepository
	dispatcher payroll.ReleaseDispatcher
	locker     lock.Locker
	notifier   ReleaseNotifier
	loc        *time.Location
	lockTTL    time.Duration
}

func NewReleaseScheduler(
	batches payroll.PayrollRepository,
	dispatcher payroll.ReleaseDispatcher,
	locker lock.Locker,
	notifier ReleaseNotifier,
	loc *time.Location,
) *ReleaseScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReleaseScheduler{
		batches:    batches,
		dispatcher: dispatcher,
		locker:     locker,
		notifier:   notifier,
		loc:        loc,
		lockTTL:    defaultReleaseLockTTL,
	}
}

func (s *ReleaseScheduler) Location() *time.Location {
	return s.loc
}

// CheckAndReleaseDueBatches is the tick entry point. It releases every approved
// batch whose release instant is at or before now and returns their ids.
// Per-batch failures are logged and retried on a later tick; only a failure
// to list candidates is returned.
func (s *ReleaseScheduler) CheckAndReleaseDueBatches(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := s.batches.ListReleaseCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list release candidates: %w", err)
	}

	var released []string
	for i := range candidates {
		batch := &candidates[i]

		instant, err := ComputeReleaseInstant(batch, s.loc)
		if err != nil {
			slog.Warn("Payroll batch has no release instant, pending manual release",
				"batch_id", batch.ID,
				"cutoff_date", batch.CutoffLabel,
				"error", err,
			)
			continue
		}
		if instant.After(now) {
			continue
		}

		ok, err := s.release(ctx, batch.ID, *instant, now)
		if err != nil {
			slog.Error("Payroll release failed, will retry", "batch_id", batch.ID, "error", err)
			continue
		}
		if ok {
			released = append(released, batch.ID)
		}
	}
	return released, nil
}

// ReleaseNow releases an approved batch immediately on behalf of an approver,
// through the same guarded path as the timer.
func (s *ReleaseScheduler) ReleaseNow(ctx context.Context, actor user.Actor, batchID string, now time.Time) error {
	if !actor.Can(user.PermissionPayrollRelease) {
		return payroll.ErrApproverRoleRequired
	}

	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.Released {
		return payroll.ErrBatchAlreadyReleased
	}
	if !batch.IsApproved() {
		return payroll.ErrBatchNotApproved
	}

	releaseAt := now
	if instant, err := ComputeReleaseInstant(&batch, s.loc); err == nil {
		releaseAt = *instant
	}

	ok, err := s.release(ctx, batchID, releaseAt, now)
	if err != nil {
		return err
	}
	if !ok {
		return payroll.ErrReleaseInProgress
	}
	slog.Info("Payroll batch released manually", "batch_id", batchID, "by", actor.UserID)
	return nil
}

func releaseLockKey(batchID string) string {
	return "payroll:release:" + batchID
}

// withBatchLock runs fn while holding the release claim on batchID. It returns
// false without calling fn when the claim is held elsewhere.
func (s *ReleaseScheduler) withBatchLock(ctx context.Context, batchID string, fn func() error) (bool, error) {
	key := releaseLockKey(batchID)
	acquired, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			slog.Warn("Failed to release payroll lock", "key", key, "error", err)
		}
	}()
	return true, fn()
}

// release dispatches one batch under its lock. It returns false without error
// when the batch is claimed elsewhere, was deleted, is no longer approved or
// is already released. releaseAt is carried in the order only.
func (s *ReleaseScheduler) release(ctx context.Context, batchID string, releaseAt, now time.Time) (bool, error) {
	var released bool
	acquired, err := s.withBatchLock(ctx, batchID, func() error {
		var err error
		released, err = s.dispatchLocked(ctx, batchID, releaseAt, now)
		return err
	})
	if err != nil || !acquired {
		return false, err
	}
	return released, nil
}

func (s *ReleaseScheduler) dispatchLocked(ctx context.Context, batchID string, releaseAt, now time.Time) (bool, error) {
	// Re-read under the lock: the batch may have been rejected or released meanwhile.
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, payroll.ErrBatchNotFound) {
			slog.Info("Payroll batch vanished before release", "batch_id", batchID)
			return false, nil
		}
		return false, fmt.Errorf("failed to reload payroll batch: %w", err)
	}
	if batch.Released || !batch.IsApproved() {
		return false, nil
	}

	order := payroll.ReleaseOrder{
		BatchID:     batch.ID,
		PayslipIDs:  batch.PayslipIDs(),
		ReleaseAt:   releaseAt,
		PayrollType: batch.PayrollType,
	}
	if err := s.dispatcher.DispatchRelease(ctx, order); err != nil {
		return false, fmt.Errorf("%w: %w", payroll.ErrReleaseDispatchFailed, err)
	}

	marked, err := s.batches.MarkReleased(ctx, batch.ID, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark batch released after dispatch: %w", err)
	}
	if !marked {
		return false, nil
	}

	slog.Info("Payroll batch released", "batch_id", batch.ID, "payslips", len(order.PayslipIDs), "release_at", releaseAt)
	if s.notifier != nil {
		s.notifier.Broadcast(EventPayrollReleased, map[string]any{
			"batch_id":     batch.ID,
			"cutoff_date":  batch.CutoffLabel,
			"payroll_type": batch.PayrollType,
			"released_at":  now,
		})
	}
	return true, nil
}
