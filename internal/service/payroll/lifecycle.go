package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

const (
	reasonBatchNotFound     = "batch not found"
	reasonNoPendingPayslips = "batch has no pending payslips"
	reasonBatchNotPending   = "batch is no longer pending"
	reasonChangeNotFound    = "change request not found"
	reasonChangeNotPending  = "change request is not pending"
	reasonNoPendingInGroup  = "no pending change requests in group"
)

// Lifecycle owns every status transition of batches, payslips and change requests.
// Transitions on missing or non-pending targets report a no-op outcome instead of failing.
type Lifecycle struct {
	batches payroll.PayrollRepository
	changes payroll.ChangeRequestRepository
	now     func() time.Time
}

func NewLifecycle(batches payroll.PayrollRepository, changes payroll.ChangeRequestRepository) *Lifecycle {
	return &Lifecycle{
		batches: batches,
		changes: changes,
		now:     time.Now,
	}
}

// ApproveAll approves every pending payslip of the batch. Re-approving is a no-op.
func (l *Lifecycle) ApproveAll(ctx context.Context, actor user.Actor, batchID string) (payroll.TransitionOutcome, error) {
	if !actor.IsApprover() {
		return payroll.TransitionOutcome{}, payroll.ErrApproverRoleRequired
	}

	if _, err := l.batches.GetBatch(ctx, batchID); err != nil {
		if errors.Is(err, payroll.ErrBatchNotFound) {
			return payroll.NoOp(reasonBatchNotFound), nil
		}
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to get payroll batch: %w", err)
	}

	n, err := l.batches.UpdatePayslipStatus(ctx, batchID, payroll.PayslipStatusPending, payroll.PayslipStatusApproved)
	if err != nil {
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to approve payslips: %w", err)
	}
	if n == 0 {
		return payroll.NoOp(reasonNoPendingPayslips), nil
	}

	slog.Info("Payroll batch approved", "batch_id", batchID, "payslips", n, "approver", actor.UserID)
	return payroll.Changed(int(n)), nil
}

// RejectAll deletes the batch together with its payslips and change requests.
// Rejection is destructive; an approved or released batch is left untouched.
func (l *Lifecycle) RejectAll(ctx context.Context, actor user.Actor, batchID string) (payroll.TransitionOutcome, error) {
	if !actor.IsApprover() {
		return payroll.TransitionOutcome{}, payroll.ErrApproverRoleRequired
	}

	batch, err := l.batches.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, payroll.ErrBatchNotFound) {
			return payroll.NoOp(reasonBatchNotFound), nil
		}
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to get payroll batch: %w", err)
	}

	deleted, err := l.batches.DeleteBatch(ctx, batchID)
	if err != nil {
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to delete payroll batch: %w", err)
	}
	if !deleted {
		return payroll.NoOp(reasonBatchNotPending), nil
	}

	slog.Info("Payroll batch rejected and deleted", "batch_id", batchID, "payslips", len(batch.Payslips), "approver", actor.UserID)
	return payroll.Changed(len(batch.Payslips)), nil
}

// ApproveChange approves the request and every pending request filed with it.
func (l *Lifecycle) ApproveChange(ctx context.Context, actor user.Actor, requestID string) (payroll.TransitionOutcome, error) {
	return l.decideChange(ctx, actor, requestID, payroll.ChangeRequestApproved)
}

// RejectChange rejects the request and every pending request filed with it.
func (l *Lifecycle) RejectChange(ctx context.Context, actor user.Actor, requestID string) (payroll.TransitionOutcome, error) {
	return l.decideChange(ctx, actor, requestID, payroll.ChangeRequestRejected)
}

func (l *Lifecycle) decideChange(ctx context.Context, actor user.Actor, requestID string, to payroll.ChangeRequestStatus) (payroll.TransitionOutcome, error) {
	if !actor.IsApprover() {
		return payroll.TransitionOutcome{}, payroll.ErrApproverRoleRequired
	}

	req, err := l.changes.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, payroll.ErrChangeRequestNotFound) {
			return payroll.NoOp(reasonChangeNotFound), nil
		}
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to get change request: %w", err)
	}
	if req.Status != payroll.ChangeRequestPending {
		return payroll.NoOp(reasonChangeNotPending), nil
	}

	members := []payroll.ChangeRequest{req}
	if req.GroupID != nil {
		members, err = l.changes.ListByGroup(ctx, *req.GroupID)
		if err != nil {
			return payroll.TransitionOutcome{}, fmt.Errorf("failed to list change request group: %w", err)
		}
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m.Status == payroll.ChangeRequestPending {
			ids = append(ids, m.ID)
		}
	}

	n, err := l.changes.UpdateStatus(ctx, ids, payroll.ChangeRequestPending, to, actor.UserID, l.now().UTC())
	if err != nil {
		return payroll.TransitionOutcome{}, fmt.Errorf("failed to update change requests: %w", err)
	}
	if n == 0 {
		return payroll.NoOp(reasonNoPendingInGroup), nil
	}

	slog.Info("Change request decided", "request_id", requestID, "status", to, "affected", n, "approver", actor.UserID)
	return payroll.Changed(int(n)), nil
}
