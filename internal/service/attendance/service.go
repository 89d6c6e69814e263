package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	holidaySvc "github.com/cmlabs-hris/payroll-backend-go/internal/service/holiday"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// CalendarSource builds a holiday classifier for the given years.
type CalendarSource interface {
	Classifier(ctx context.Context, years []int) (*holidaySvc.Classifier, error)
}

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	calendar CalendarSource
}

func NewAttendanceService(attendanceRepo attendance.AttendanceRepository, calendar CalendarSource) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		calendar:             calendar,
	}
}

// Aggregate implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Aggregate(ctx context.Context, req attendance.AggregateRequest) (attendance.AggregateResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AggregateResponse{}, err
	}
	rows, err := attendance.ToRows(req.Rows)
	if err != nil {
		return attendance.AggregateResponse{}, err
	}

	result, err := a.aggregate(ctx, rows)
	if err != nil {
		return attendance.AggregateResponse{}, err
	}
	return mapToAggregateResponse(result), nil
}

// CreateUpload implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CreateUpload(ctx context.Context, req attendance.UploadRequest) (attendance.UploadResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.UploadResponse{}, err
	}
	rows, err := attendance.ToRows(req.Rows)
	if err != nil {
		return attendance.UploadResponse{}, err
	}

	uploadedBy := req.UploadedBy
	if uploadedBy == "" {
		uploadedBy, err = userIDFromContext(ctx)
		if err != nil {
			return attendance.UploadResponse{}, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.UploadResponse{}, fmt.Errorf("failed to generate upload id: %w", err)
	}

	upload, err := a.AttendanceRepository.CreateUpload(ctx, attendance.Upload{
		ID:         id.String(),
		Label:      req.Label,
		UploadedBy: uploadedBy,
		RowCount:   len(rows),
		Rows:       rows,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return attendance.UploadResponse{}, fmt.Errorf("failed to create attendance upload: %w", err)
	}

	slog.Info("Attendance upload stored", "upload_id", upload.ID, "rows", upload.RowCount)
	return attendance.ToUploadResponse(upload), nil
}

// ProcessUpload implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ProcessUpload(ctx context.Context, uploadID string) (attendance.AggregateResponse, error) {
	if _, err := a.AttendanceRepository.GetUpload(ctx, uploadID); err != nil {
		return attendance.AggregateResponse{}, err
	}

	rows, err := a.AttendanceRepository.ListRowsByUpload(ctx, uploadID)
	if err != nil {
		return attendance.AggregateResponse{}, fmt.Errorf("failed to fetch attendance rows: %w", err)
	}
	if len(rows) == 0 {
		return attendance.AggregateResponse{}, attendance.ErrEmptyUpload
	}

	result, err := a.aggregate(ctx, rows)
	if err != nil {
		return attendance.AggregateResponse{}, err
	}

	now := time.Now().UTC()
	for i := range result.Summaries {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.AggregateResponse{}, fmt.Errorf("failed to generate summary id: %w", err)
		}
		result.Summaries[i].ID = id.String()
		result.Summaries[i].UploadID = uploadID
		result.Summaries[i].CreatedAt = now
	}

	if err := a.AttendanceRepository.ReplaceSummaries(ctx, uploadID, result.Summaries); err != nil {
		return attendance.AggregateResponse{}, fmt.Errorf("failed to persist attendance summaries: %w", err)
	}

	slog.Info("Attendance upload processed",
		"upload_id", uploadID,
		"records", len(result.Records),
		"summaries", len(result.Summaries),
		"issues", len(result.Issues),
	)
	return mapToAggregateResponse(result), nil
}

// ListSummaries implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListSummaries(ctx context.Context, uploadID string) ([]attendance.SummaryResponse, error) {
	if _, err := a.AttendanceRepository.GetUpload(ctx, uploadID); err != nil {
		return nil, err
	}

	summaries, err := a.AttendanceRepository.ListSummariesByUpload(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance summaries: %w", err)
	}

	responses := make([]attendance.SummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		responses = append(responses, attendance.ToSummaryResponse(s))
	}
	return responses, nil
}

func (a *AttendanceServiceImpl) aggregate(ctx context.Context, rows []attendance.Row) (AggregationResult, error) {
	classifier, err := a.calendar.Classifier(ctx, yearsOf(rows))
	if err != nil {
		return AggregationResult{}, err
	}

	result := Process(rows, classifier)
	for _, issue := range result.Issues {
		slog.Warn("Attendance row degraded",
			"row", issue.RowIndex,
			"employee_code", issue.EmployeeCode,
			"field", issue.Field,
			"error", issue.Err,
		)
	}
	return result, nil
}

// yearsOf returns the distinct calendar years referenced by rows, ascending.
func yearsOf(rows []attendance.Row) []int {
	seen := make(map[int]bool)
	for _, row := range rows {
		date, err := holidaySvc.NormalizeDate(row.Date)
		if err != nil {
			continue
		}
		t, _ := time.Parse(holidaySvc.DateLayout, date)
		seen[t.Year()] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func userIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id claim is missing or invalid")
	}
	return userID, nil
}

func mapToAggregateResponse(result AggregationResult) attendance.AggregateResponse {
	resp := attendance.AggregateResponse{
		Records:   make([]attendance.RecordResponse, 0, len(result.Records)),
		Summaries: make([]attendance.SummaryResponse, 0, len(result.Summaries)),
		Issues:    make([]attendance.IssueResponse, 0, len(result.Issues)),
	}
	for _, r := range result.Records {
		resp.Records = append(resp.Records, attendance.ToRecordResponse(r))
	}
	for _, s := range result.Summaries {
		resp.Summaries = append(resp.Summaries, attendance.ToSummaryResponse(s))
	}
	for _, i := range result.Issues {
		resp.Issues = append(resp.Issues, attendance.ToIssueResponse(i))
	}
	return resp
}
