package payroll

import (
	"context"
	"time"
)

// PayrollRepository persists batches together with their payslips.
type PayrollRepository interface {
	// CreateBatch stores the batch and all its payslips atomically
	CreateBatch(ctx context.Context, batch Batch) error

	// GetBatch returns the batch with its payslips
	GetBatch(ctx context.Context, id string) (Batch, error)

	ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error)

	// ListReleaseCandidates returns unreleased batches whose payslips are all approved
	ListReleaseCandidates(ctx context.Context) ([]Batch, error)

	// UpdatePayslipStatus moves every payslip of the batch in status from to status to
	UpdatePayslipStatus(ctx context.Context, batchID string, from, to PayslipStatus) (int64, error)

	UpdateCutoff(ctx context.Context, batchID string, cutoff CutoffPeriod) error

	// DeleteBatch removes the batch, its payslips and its change requests atomically.
	// Nothing is deleted, and false returned, once any payslip is approved or the batch is released.
	DeleteBatch(ctx context.Context, batchID string) (bool, error)

	// MarkReleased flips released from false to true; false means another caller won
	MarkReleased(ctx context.Context, batchID string, at time.Time) (bool, error)
}

type RateRepository interface {
	GetByEmployee(ctx context.Context, employeeCode string) (RateConfig, error)
	Upsert(ctx context.Context, rate RateConfig) (RateConfig, error)
	List(ctx context.Context) ([]RateConfig, error)
}

type ChangeRequestRepository interface {
	Create(ctx context.Context, requests []ChangeRequest) error
	GetByID(ctx context.Context, id string) (ChangeRequest, error)
	ListByGroup(ctx context.Context, groupID string) ([]ChangeRequest, error)
	List(ctx context.Context, filter ChangeRequestFilter) ([]ChangeRequest, error)

	// UpdateStatus transitions the given requests that are still in status from
	UpdateStatus(ctx context.Context, ids []string, from, to ChangeRequestStatus, decidedBy string, at time.Time) (int64, error)
}

type BatchFilter struct {
	PayrollType *PayrollType
	Released    *bool
}

type ChangeRequestFilter struct {
	PayrollBatchID *string
	Status         *ChangeRequestStatus
}
