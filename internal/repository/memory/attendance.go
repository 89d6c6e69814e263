package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
)

type AttendanceRepository struct {
	s *Store
}

var _ attendance.AttendanceRepository = (*AttendanceRepository)(nil)

func (r *AttendanceRepository) CreateUpload(_ context.Context, upload attendance.Upload) (attendance.Upload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	upload.Rows = append([]attendance.Row(nil), upload.Rows...)
	upload.RowCount = len(upload.Rows)
	r.s.uploads[upload.ID] = upload
	return upload, nil
}

func (r *AttendanceRepository) GetUpload(_ context.Context, id string) (attendance.Upload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	upload, ok := r.s.uploads[id]
	if !ok {
		return attendance.Upload{}, attendance.ErrUploadNotFound
	}
	upload.Rows = nil
	return upload, nil
}

func (r *AttendanceRepository) ListRowsByUpload(_ context.Context, uploadID string) ([]attendance.Row, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	upload, ok := r.s.uploads[uploadID]
	if !ok {
		return nil, attendance.ErrUploadNotFound
	}
	return append([]attendance.Row(nil), upload.Rows...), nil
}

func (r *AttendanceRepository) ReplaceSummaries(_ context.Context, uploadID string, summaries []attendance.Summary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	upload, ok := r.s.uploads[uploadID]
	if !ok {
		return attendance.ErrUploadNotFound
	}
	r.s.summaries[uploadID] = append([]attendance.Summary(nil), summaries...)

	processedAt := time.Now().UTC()
	upload.ProcessedAt = &processedAt
	r.s.uploads[uploadID] = upload
	return nil
}

func (r *AttendanceRepository) ListSummariesByUpload(_ context.Context, uploadID string) ([]attendance.Summary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]attendance.Summary(nil), r.s.summaries[uploadID]...), nil
}
