package attendance

import "context"

// AttendanceService defines business logic for attendance aggregation
type AttendanceService interface {
	// Aggregate runs the aggregation over posted rows without persisting anything
	Aggregate(ctx context.Context, req AggregateRequest) (AggregateResponse, error)

	// CreateUpload stores parsed rows for later processing
	CreateUpload(ctx context.Context, req UploadRequest) (UploadResponse, error)

	// ProcessUpload aggregates an upload against the holiday calendar and persists the summaries
	ProcessUpload(ctx context.Context, uploadID string) (AggregateResponse, error)

	ListSummaries(ctx context.Context, uploadID string) ([]SummaryResponse, error)
}
