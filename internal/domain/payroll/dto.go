package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== BATCH DTOs ==========

type GenerateBatchRequest struct {
	UploadID    string        `json:"upload_id"`
	PayrollType string        `json:"payroll_type"`
	Cutoff      *CutoffPeriod `json:"cutoff,omitempty"`
	CutoffLabel string        `json:"cutoff_date,omitempty"` // legacy "June 1-15, 2025"
}

func (r *GenerateBatchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UploadID) {
		errs = append(errs, validator.ValidationError{Field: "upload_id", Message: "upload_id is required"})
	}
	if !PayrollType(r.PayrollType).Valid() {
		errs = append(errs, validator.ValidationError{Field: "payroll_type", Message: "must be 'weekly' or 'semi_monthly'"})
	}
	if r.Cutoff != nil {
		if err := r.Cutoff.Validate(); err != nil {
			errs = append(errs, validator.ValidationError{Field: "cutoff", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateCutoffRequest struct {
	Cutoff CutoffPeriod `json:"cutoff"`
}

func (r *UpdateCutoffRequest) Validate() error {
	if err := r.Cutoff.Validate(); err != nil {
		return validator.ValidationErrors{{Field: "cutoff", Message: err.Error()}}
	}
	return nil
}

type PayslipResponse struct {
	ID                string          `json:"id"`
	BatchID           string          `json:"batch_id"`
	EmployeeCode      string          `json:"employee_code"`
	DaysPresent       int             `json:"days_present"`
	RegularHours      decimal.Decimal `json:"regular_hours"`
	HolidayHours      decimal.Decimal `json:"holiday_hours"`
	OvertimeHours     decimal.Decimal `json:"overtime_hours"`
	TardinessMinutes  int             `json:"tardiness_minutes"`
	BasicPay          decimal.Decimal `json:"basic_pay"`
	OvertimePay       decimal.Decimal `json:"overtime_pay"`
	HolidayPay        decimal.Decimal `json:"holiday_pay"`
	NightDifferential decimal.Decimal `json:"night_differential"`
	Allowance         decimal.Decimal `json:"allowance"`
	Tax               decimal.Decimal `json:"tax"`
	SSS               decimal.Decimal `json:"sss"`
	PhilHealth        decimal.Decimal `json:"philhealth"`
	PagIBIG           decimal.Decimal `json:"pagibig"`
	Loan              decimal.Decimal `json:"loan"`
	OtherDeductions   decimal.Decimal `json:"other_deductions"`
	GrossPay          decimal.Decimal `json:"gross_pay"`
	NetPay            decimal.Decimal `json:"net_pay"`
	Status            PayslipStatus   `json:"status"`
}

type BatchResponse struct {
	ID                  string            `json:"id"`
	CutoffDate          string            `json:"cutoff_date"`
	Cutoff              *CutoffPeriod     `json:"cutoff,omitempty"`
	PayrollType         PayrollType       `json:"payroll_type"`
	RequestedBy         string            `json:"requested_by"`
	CreatedAt           time.Time         `json:"created_at"`
	Status              BatchStatus       `json:"status"`
	UniqueStatuses      []PayslipStatus   `json:"unique_statuses"`
	PayslipCount        int               `json:"payslip_count"`
	TotalGrossPay       decimal.Decimal   `json:"total_gross_pay"`
	TotalNetPay         decimal.Decimal   `json:"total_net_pay"`
	ReleaseDate         *time.Time        `json:"release_date"`
	ReleaseWarning      string            `json:"release_warning,omitempty"`
	Released            bool              `json:"released"`
	ReleaseDispatchedAt *time.Time        `json:"release_dispatched_at,omitempty"`
	Payslips            []PayslipResponse `json:"payslips,omitempty"`
	SkippedEmployees    []string          `json:"skipped_employees,omitempty"`
}

type ReleaseInfoResponse struct {
	BatchID     string      `json:"batch_id"`
	PayrollType PayrollType `json:"payroll_type"`
	Status      BatchStatus `json:"status"`
	ReleaseDate *time.Time  `json:"release_date"`
	Due         bool        `json:"due"`
	Released    bool        `json:"released"`
	Warning     string      `json:"warning,omitempty"`
}

type TransitionResponse struct {
	Changed  bool   `json:"changed"`
	Affected int    `json:"affected"`
	Message  string `json:"message"`
}

func ToTransitionResponse(o TransitionOutcome) TransitionResponse {
	msg := o.Reason
	if o.Changed {
		msg = fmt.Sprintf("%d record(s) updated", o.Affected)
	}
	return TransitionResponse{Changed: o.Changed, Affected: o.Affected, Message: msg}
}

func ToPayslipResponse(p Payslip) PayslipResponse {
	return PayslipResponse{
		ID:                p.ID,
		BatchID:           p.BatchID,
		EmployeeCode:      p.EmployeeCode,
		DaysPresent:       p.DaysPresent,
		RegularHours:      p.RegularHours,
		HolidayHours:      p.HolidayHours,
		OvertimeHours:     p.OvertimeHours,
		TardinessMinutes:  p.TardinessMinutes,
		BasicPay:          p.Earnings.Basic,
		OvertimePay:       p.Earnings.Overtime,
		HolidayPay:        p.Earnings.Holiday,
		NightDifferential: p.Earnings.NightDifferential,
		Allowance:         p.Earnings.Allowance,
		Tax:               p.Deductions.Tax,
		SSS:               p.Deductions.SSS,
		PhilHealth:        p.Deductions.PhilHealth,
		PagIBIG:           p.Deductions.PagIBIG,
		Loan:              p.Deductions.Loan,
		OtherDeductions:   p.Deductions.Other,
		GrossPay:          p.GrossPay,
		NetPay:            p.NetPay,
		Status:            p.Status,
	}
}

// ========== RATE DTOs ==========

type UpsertRateRequest struct {
	DailyRate              decimal.Decimal  `json:"daily_rate"`
	HoursPerDay            *decimal.Decimal `json:"hours_per_day,omitempty"`
	OvertimeMultiplier     *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	HolidayMultiplier      *decimal.Decimal `json:"holiday_multiplier,omitempty"`
	NightDifferential      decimal.Decimal  `json:"night_differential"`
	Allowance              decimal.Decimal  `json:"allowance"`
	Tax                    decimal.Decimal  `json:"tax"`
	SSSContribution        decimal.Decimal  `json:"sss_contribution"`
	PhilHealthContribution decimal.Decimal  `json:"philhealth_contribution"`
	PagIBIGContribution    decimal.Decimal  `json:"pagibig_contribution"`
	Loan                   decimal.Decimal  `json:"loan"`
	OtherDeduction         decimal.Decimal  `json:"other_deduction"`
	LateDeductionPerMinute decimal.Decimal  `json:"late_deduction_per_minute"`
}

var (
	DefaultHoursPerDay        = decimal.NewFromInt(8)
	DefaultOvertimeMultiplier = decimal.RequireFromString("1.25")
	DefaultHolidayMultiplier  = decimal.NewFromInt(2)
)

func (r *UpsertRateRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.DailyRate.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "daily_rate", Message: "must be greater than 0"})
	}
	if r.HoursPerDay != nil && !r.HoursPerDay.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "hours_per_day", Message: "must be greater than 0"})
	}

	nonNegative := map[string]decimal.Decimal{
		"night_differential":        r.NightDifferential,
		"allowance":                 r.Allowance,
		"tax":                       r.Tax,
		"sss_contribution":          r.SSSContribution,
		"philhealth_contribution":   r.PhilHealthContribution,
		"pagibig_contribution":      r.PagIBIGContribution,
		"loan":                      r.Loan,
		"other_deduction":           r.OtherDeduction,
		"late_deduction_per_minute": r.LateDeductionPerMinute,
	}
	if r.OvertimeMultiplier != nil {
		nonNegative["overtime_multiplier"] = *r.OvertimeMultiplier
	}
	if r.HolidayMultiplier != nil {
		nonNegative["holiday_multiplier"] = *r.HolidayMultiplier
	}
	for field, v := range nonNegative {
		if v.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToRateConfig applies defaults for the optional multipliers.
func (r *UpsertRateRequest) ToRateConfig(employeeCode string) RateConfig {
	rate := RateConfig{
		EmployeeCode:           employeeCode,
		DailyRate:              r.DailyRate,
		HoursPerDay:            DefaultHoursPerDay,
		OvertimeMultiplier:     DefaultOvertimeMultiplier,
		HolidayMultiplier:      DefaultHolidayMultiplier,
		NightDifferential:      r.NightDifferential,
		Allowance:              r.Allowance,
		Tax:                    r.Tax,
		SSSContribution:        r.SSSContribution,
		PhilHealthContribution: r.PhilHealthContribution,
		PagIBIGContribution:    r.PagIBIGContribution,
		Loan:                   r.Loan,
		OtherDeduction:         r.OtherDeduction,
		LateDeductionPerMinute: r.LateDeductionPerMinute,
	}
	if r.HoursPerDay != nil {
		rate.HoursPerDay = *r.HoursPerDay
	}
	if r.OvertimeMultiplier != nil {
		rate.OvertimeMultiplier = *r.OvertimeMultiplier
	}
	if r.HolidayMultiplier != nil {
		rate.HolidayMultiplier = *r.HolidayMultiplier
	}
	return rate
}

type RateResponse struct {
	EmployeeCode           string          `json:"employee_code"`
	DailyRate              decimal.Decimal `json:"daily_rate"`
	HourlyRate             decimal.Decimal `json:"hourly_rate"`
	HoursPerDay            decimal.Decimal `json:"hours_per_day"`
	OvertimeMultiplier     decimal.Decimal `json:"overtime_multiplier"`
	HolidayMultiplier      decimal.Decimal `json:"holiday_multiplier"`
	NightDifferential      decimal.Decimal `json:"night_differential"`
	Allowance              decimal.Decimal `json:"allowance"`
	Tax                    decimal.Decimal `json:"tax"`
	SSSContribution        decimal.Decimal `json:"sss_contribution"`
	PhilHealthContribution decimal.Decimal `json:"philhealth_contribution"`
	PagIBIGContribution    decimal.Decimal `json:"pagibig_contribution"`
	Loan                   decimal.Decimal `json:"loan"`
	OtherDeduction         decimal.Decimal `json:"other_deduction"`
	LateDeductionPerMinute decimal.Decimal `json:"late_deduction_per_minute"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func ToRateResponse(r RateConfig) RateResponse {
	return RateResponse{
		EmployeeCode:           r.EmployeeCode,
		DailyRate:              r.DailyRate,
		HourlyRate:             r.HourlyRate().Round(2),
		HoursPerDay:            r.HoursPerDay,
		OvertimeMultiplier:     r.OvertimeMultiplier,
		HolidayMultiplier:      r.HolidayMultiplier,
		NightDifferential:      r.NightDifferential,
		Allowance:              r.Allowance,
		Tax:                    r.Tax,
		SSSContribution:        r.SSSContribution,
		PhilHealthContribution: r.PhilHealthContribution,
		PagIBIGContribution:    r.PagIBIGContribution,
		Loan:                   r.Loan,
		OtherDeduction:         r.OtherDeduction,
		LateDeductionPerMinute: r.LateDeductionPerMinute,
		UpdatedAt:              r.UpdatedAt,
	}
}

// ========== CHANGE REQUEST DTOs ==========

// ChangeableFields lists the payslip figures a change request may propose.
var ChangeableFields = map[string]bool{
	"basic_pay":          true,
	"overtime_pay":       true,
	"holiday_pay":        true,
	"night_differential": true,
	"allowance":          true,
	"tax":                true,
	"sss":                true,
	"philhealth":         true,
	"pagibig":            true,
	"loan":               true,
	"other_deductions":   true,
}

type CreateChangeRequestRequest struct {
	PayrollBatchID string                     `json:"payroll_batch_id"`
	EmployeeCodes  []string                   `json:"employee_codes"`
	Changes        map[string]decimal.Decimal `json:"changes"`
	Reasons        string                     `json:"reasons"`
}

func (r *CreateChangeRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PayrollBatchID) {
		errs = append(errs, validator.ValidationError{Field: "payroll_batch_id", Message: "payroll_batch_id is required"})
	}
	if len(r.EmployeeCodes) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employee_codes", Message: "at least one employee is required"})
	}
	seen := make(map[string]bool, len(r.EmployeeCodes))
	for i, code := range r.EmployeeCodes {
		if validator.IsEmpty(code) {
			errs = append(errs, validator.ValidationError{Field: fmt.Sprintf("employee_codes[%d]", i), Message: "must not be empty"})
		} else if seen[code] {
			errs = append(errs, validator.ValidationError{Field: fmt.Sprintf("employee_codes[%d]", i), Message: "duplicate employee"})
		}
		seen[code] = true
	}
	if len(r.Changes) == 0 {
		errs = append(errs, validator.ValidationError{Field: "changes", Message: "at least one change is required"})
	}
	for field, v := range r.Changes {
		if !ChangeableFields[field] {
			errs = append(errs, validator.ValidationError{Field: "changes." + field, Message: "field cannot be changed"})
		} else if v.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "changes." + field, Message: "must be non-negative"})
		}
	}
	if validator.IsEmpty(r.Reasons) {
		errs = append(errs, validator.ValidationError{Field: "reasons", Message: "reasons is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ChangeRequestResponse struct {
	ID             string                     `json:"id"`
	PayrollBatchID string                     `json:"payroll_batch_id"`
	EmployeeCode   string                     `json:"employee_code"`
	Changes        map[string]decimal.Decimal `json:"changes"`
	Reasons        string                     `json:"reasons"`
	Status         ChangeRequestStatus        `json:"status"`
	RequestedBy    string                     `json:"requested_by"`
	DecidedBy      *string                    `json:"decided_by,omitempty"`
	DecidedAt      *time.Time                 `json:"decided_at,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

type ChangeGroupResponse struct {
	Kind          string                  `json:"kind"` // "individual" or "batched"
	GroupID       *string                 `json:"batch_id,omitempty"`
	EmployeeCodes []string                `json:"employee_ids"`
	Requests      []ChangeRequestResponse `json:"requests"`
}

func ToChangeRequestResponse(c ChangeRequest) ChangeRequestResponse {
	return ChangeRequestResponse{
		ID:             c.ID,
		PayrollBatchID: c.PayrollBatchID,
		EmployeeCode:   c.EmployeeCode,
		Changes:        c.Changes,
		Reasons:        c.Reasons,
		Status:         c.Status,
		RequestedBy:    c.RequestedBy,
		DecidedBy:      c.DecidedBy,
		DecidedAt:      c.DecidedAt,
		CreatedAt:      c.CreatedAt,
	}
}

func ToChangeGroupResponse(g ChangeGroup) ChangeGroupResponse {
	var resp ChangeGroupResponse
	switch g := g.(type) {
	case IndividualChange:
		resp.Kind = "individual"
		resp.EmployeeCodes = []string{g.Request.EmployeeCode}
	case BatchedChange:
		groupID := g.GroupID
		resp.Kind = "batched"
		resp.GroupID = &groupID
		resp.EmployeeCodes = g.EmployeeCodes()
	}
	for _, r := range g.Members() {
		resp.Requests = append(resp.Requests, ToChangeRequestResponse(r))
	}
	return resp
}
