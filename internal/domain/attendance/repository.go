package attendance

import "context"

// AttendanceRepository stores uploaded rows and the summaries derived from them.
type AttendanceRepository interface {
	CreateUpload(ctx context.Context, upload Upload) (Upload, error)

	// GetUpload retrieves the upload header without rows
	GetUpload(ctx context.Context, id string) (Upload, error)

	ListRowsByUpload(ctx context.Context, uploadID string) ([]Row, error)

	// ReplaceSummaries supersedes any summaries of a previous run for the same upload
	ReplaceSummaries(ctx context.Context, uploadID string, summaries []Summary) error

	ListSummariesByUpload(ctx context.Context, uploadID string) ([]Summary, error)
}
