package payroll

import "context"

// PayrollService defines business logic for payroll batches, rates and change requests.
// The acting user is read from the request context.
type PayrollService interface {
	// Batches
	GenerateBatch(ctx context.Context, req GenerateBatchRequest) (BatchResponse, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]BatchResponse, error)
	GetBatch(ctx context.Context, id string) (BatchResponse, error)
	UpdateCutoff(ctx context.Context, id string, req UpdateCutoffRequest) (BatchResponse, error)
	ApproveBatch(ctx context.Context, id string) (TransitionResponse, error)
	RejectBatch(ctx context.Context, id string) (TransitionResponse, error)
	ReleaseBatch(ctx context.Context, id string) (BatchResponse, error)
	GetReleaseInfo(ctx context.Context, id string) (ReleaseInfoResponse, error)

	// Rates
	UpsertRate(ctx context.Context, employeeCode string, req UpsertRateRequest) (RateResponse, error)
	ListRates(ctx context.Context) ([]RateResponse, error)

	// Change requests
	CreateChangeRequest(ctx context.Context, req CreateChangeRequestRequest) (ChangeGroupResponse, error)
	ListChangeRequests(ctx context.Context, filter ChangeRequestFilter) ([]ChangeGroupResponse, error)
	ApproveChange(ctx context.Context, id string) (TransitionResponse, error)
	RejectChange(ctx context.Context, id string) (TransitionResponse, error)

	// Contributions
	ContributionReport(ctx context.Context, batchID string) (ContributionReport, error)
	ExportContributions(ctx context.Context, batchID string) ([]byte, error)
}

// ReleaseDispatcher hands a released batch to the disbursement collaborator.
type ReleaseDispatcher interface {
	DispatchRelease(ctx context.Context, order ReleaseOrder) error
}
