package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// CreateUpload implements attendance.AttendanceRepository.
func (a *attendanceRepository) CreateUpload(ctx context.Context, upload attendance.Upload) (attendance.Upload, error) {
	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		err := q.QueryRow(ctx, `
			INSERT INTO attendance_uploads (id, label, uploaded_by, row_count, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, upload.ID, upload.Label, upload.UploadedBy, len(upload.Rows), upload.CreatedAt).Scan(&upload.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert attendance upload: %w", err)
		}

		for i, row := range upload.Rows {
			_, err := q.Exec(ctx, `
				INSERT INTO attendance_rows (
					upload_id, row_index, employee_code, date, scheduled_in, scheduled_out, actual_in, actual_out
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, upload.ID, i, row.EmployeeCode, row.Date, row.ScheduledIn, row.ScheduledOut, row.ActualIn, row.ActualOut)
			if err != nil {
				return fmt.Errorf("failed to insert attendance row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return attendance.Upload{}, err
	}

	upload.RowCount = len(upload.Rows)
	return upload, nil
}

// GetUpload implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetUpload(ctx context.Context, id string) (attendance.Upload, error) {
	q := GetQuerier(ctx, a.db)

	var u attendance.Upload
	err := q.QueryRow(ctx, `
		SELECT id, label, uploaded_by, row_count, created_at, processed_at
		FROM attendance_uploads
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Label, &u.UploadedBy, &u.RowCount, &u.CreatedAt, &u.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Upload{}, attendance.ErrUploadNotFound
		}
		return attendance.Upload{}, fmt.Errorf("failed to get attendance upload: %w", err)
	}
	return u, nil
}

// ListRowsByUpload implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListRowsByUpload(ctx context.Context, uploadID string) ([]attendance.Row, error) {
	if _, err := a.GetUpload(ctx, uploadID); err != nil {
		return nil, err
	}
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `
		SELECT employee_code, date, scheduled_in, scheduled_out, actual_in, actual_out
		FROM attendance_rows
		WHERE upload_id = $1
		ORDER BY row_index
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance rows: %w", err)
	}
	defer rows.Close()

	var result []attendance.Row
	for rows.Next() {
		var r attendance.Row
		if err := rows.Scan(&r.EmployeeCode, &r.Date, &r.ScheduledIn, &r.ScheduledOut, &r.ActualIn, &r.ActualOut); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ReplaceSummaries implements attendance.AttendanceRepository.
func (a *attendanceRepository) ReplaceSummaries(ctx context.Context, uploadID string, summaries []attendance.Summary) error {
	return WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		tag, err := q.Exec(ctx, `UPDATE attendance_uploads SET processed_at = NOW() WHERE id = $1`, uploadID)
		if err != nil {
			return fmt.Errorf("failed to mark upload processed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return attendance.ErrUploadNotFound
		}

		if _, err := q.Exec(ctx, `DELETE FROM attendance_summaries WHERE upload_id = $1`, uploadID); err != nil {
			return fmt.Errorf("failed to clear previous summaries: %w", err)
		}

		for _, s := range summaries {
			_, err := q.Exec(ctx, `
				INSERT INTO attendance_summaries (
					id, upload_id, employee_code, days_present, regular_days, holiday_days,
					regular_minutes, holiday_minutes, tardiness_minutes, overtime_minutes, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, s.ID, uploadID, s.EmployeeCode, s.DaysPresent, s.RegularDays, s.HolidayDays,
				s.RegularMinutes, s.HolidayMinutes, s.TardinessMinutes, s.OvertimeMinutes, s.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert summary for %s: %w", s.EmployeeCode, err)
			}
		}
		return nil
	})
}

// ListSummariesByUpload implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListSummariesByUpload(ctx context.Context, uploadID string) ([]attendance.Summary, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `
		SELECT id, upload_id, employee_code, days_present, regular_days, holiday_days,
			   regular_minutes, holiday_minutes, tardiness_minutes, overtime_minutes, created_at
		FROM attendance_summaries
		WHERE upload_id = $1
		ORDER BY employee_code
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance summaries: %w", err)
	}
	defer rows.Close()

	var summaries []attendance.Summary
	for rows.Next() {
		var s attendance.Summary
		err := rows.Scan(
			&s.ID, &s.UploadID, &s.EmployeeCode, &s.DaysPresent, &s.RegularDays, &s.HolidayDays,
			&s.RegularMinutes, &s.HolidayMinutes, &s.TardinessMinutes, &s.OvertimeMinutes, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
