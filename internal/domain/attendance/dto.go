package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== ROW DTOs ==========

type RowRequest struct {
	EmployeeCode string  `json:"employee_code"`
	Date         string  `json:"date"`
	ScheduledIn  string  `json:"scheduled_in"`
	ScheduledOut string  `json:"scheduled_out"`
	ActualIn     *string `json:"actual_in,omitempty"`
	ActualOut    *string `json:"actual_out,omitempty"`
}

// ToRow converts the request into a Row, failing with ErrMissingColumn when a
// required column is blank. Actual times are optional.
func (r RowRequest) ToRow() (Row, error) {
	required := []struct {
		name  string
		value string
	}{
		{"employee_code", r.EmployeeCode},
		{"date", r.Date},
		{"scheduled_in", r.ScheduledIn},
		{"scheduled_out", r.ScheduledOut},
	}
	for _, col := range required {
		if validator.IsEmpty(col.value) {
			return Row{}, fmt.Errorf("%w: %s", ErrMissingColumn, col.name)
		}
	}

	return Row{
		EmployeeCode: strings.TrimSpace(r.EmployeeCode),
		Date:         strings.TrimSpace(r.Date),
		ScheduledIn:  strings.TrimSpace(r.ScheduledIn),
		ScheduledOut: strings.TrimSpace(r.ScheduledOut),
		ActualIn:     r.ActualIn,
		ActualOut:    r.ActualOut,
	}, nil
}

func validateRows(rows []RowRequest) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if len(rows) == 0 {
		errs = append(errs, validator.ValidationError{Field: "rows", Message: "at least one row is required"})
		return errs
	}
	for i, row := range rows {
		if _, err := row.ToRow(); err != nil {
			errs = append(errs, validator.ValidationError{Field: fmt.Sprintf("rows[%d]", i), Message: err.Error()})
		}
	}
	return errs
}

// ToRows converts validated requests to rows.
func ToRows(reqs []RowRequest) ([]Row, error) {
	rows := make([]Row, 0, len(reqs))
	for _, req := range reqs {
		row, err := req.ToRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type AggregateRequest struct {
	Rows []RowRequest `json:"rows"`
}

func (r *AggregateRequest) Validate() error {
	if errs := validateRows(r.Rows); len(errs) > 0 {
		return errs
	}
	return nil
}

type UploadRequest struct {
	Label      string       `json:"label"`
	Rows       []RowRequest `json:"rows"`
	UploadedBy string       `json:"-"`
}

func (r *UploadRequest) Validate() error {
	errs := validateRows(r.Rows)
	if validator.IsEmpty(r.Label) {
		errs = append(errs, validator.ValidationError{Field: "label", Message: "label is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESPONSE DTOs ==========

type RecordResponse struct {
	EmployeeCode     string          `json:"employee_code"`
	Date             string          `json:"date"`
	IsHoliday        bool            `json:"is_holiday"`
	HolidayType      holiday.Type    `json:"holiday_type"`
	Present          bool            `json:"present"`
	TardinessMinutes int             `json:"tardiness_minutes"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	OvertimeHours    decimal.Decimal `json:"overtime_hours"`
	RegularHours     decimal.Decimal `json:"regular_hours"`
	HolidayHours     decimal.Decimal `json:"holiday_hours"`
}

type SummaryResponse struct {
	EmployeeCode     string          `json:"employee_code"`
	DaysPresent      int             `json:"days_present"`
	RegularDays      int             `json:"regular_days"`
	HolidayDays      int             `json:"holiday_days"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	RegularHours     decimal.Decimal `json:"regular_hours"`
	HolidayHours     decimal.Decimal `json:"holiday_hours"`
	TardinessMinutes int             `json:"tardiness_minutes"`
	OvertimeHours    decimal.Decimal `json:"overtime_hours"`
}

type IssueResponse struct {
	Row          int    `json:"row"`
	EmployeeCode string `json:"employee_code"`
	Field        string `json:"field"`
	Message      string `json:"message"`
}

type AggregateResponse struct {
	Records   []RecordResponse  `json:"records"`
	Summaries []SummaryResponse `json:"summaries"`
	Issues    []IssueResponse   `json:"issues"`
}

type UploadResponse struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	UploadedBy  string     `json:"uploaded_by"`
	RowCount    int        `json:"row_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func ToRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		EmployeeCode:     r.EmployeeCode,
		Date:             r.Date,
		IsHoliday:        r.IsHoliday,
		HolidayType:      r.HolidayType,
		Present:          r.Present,
		TardinessMinutes: r.TardinessMinutes,
		TotalHours:       r.TotalHours(),
		OvertimeHours:    r.OvertimeHours(),
		RegularHours:     r.RegularHours(),
		HolidayHours:     r.HolidayHours(),
	}
}

func ToSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		EmployeeCode:     s.EmployeeCode,
		DaysPresent:      s.DaysPresent,
		RegularDays:      s.RegularDays,
		HolidayDays:      s.HolidayDays,
		TotalHours:       s.TotalHours(),
		RegularHours:     s.RegularHours(),
		HolidayHours:     s.HolidayHours(),
		TardinessMinutes: s.TardinessMinutes,
		OvertimeHours:    s.OvertimeHours(),
	}
}

func ToIssueResponse(i Issue) IssueResponse {
	return IssueResponse{
		Row:          i.RowIndex,
		EmployeeCode: i.EmployeeCode,
		Field:        i.Field,
		Message:      i.Err.Error(),
	}
}

func ToUploadResponse(u Upload) UploadResponse {
	return UploadResponse{
		ID:          u.ID,
		Label:       u.Label,
		UploadedBy:  u.UploadedBy,
		RowCount:    u.RowCount,
		CreatedAt:   u.CreatedAt,
		ProcessedAt: u.ProcessedAt,
	}
}
