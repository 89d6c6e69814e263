package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GenerateInput struct {
	Cutoff      *payroll.CutoffPeriod
	CutoffLabel string
	PayrollType payroll.PayrollType
	RequestedBy string
	UploadID    *string
	Summaries   []attendance.Summary
	Rates       map[string]payroll.RateConfig // keyed by employee code
}

// BatchBuilder turns attendance summaries into a batch of pending payslips.
type BatchBuilder struct {
	contributions *ContributionCalculator
	now           func() time.Time
	newID         func() (uuid.UUID, error)
}

func NewBatchBuilder(contributions *ContributionCalculator) *BatchBuilder {
	return &BatchBuilder{
		contributions: contributions,
		now:           time.Now,
		newID:         uuid.NewV7,
	}
}

// Generate builds the batch and returns the employees skipped for lack of a rate.
// Every payslip carries the same freshly generated batch id.
func (b *BatchBuilder) Generate(in GenerateInput) (*payroll.Batch, []string, error) {
	if !in.PayrollType.Valid() {
		return nil, nil, payroll.ErrInvalidPayrollType
	}

	batchID, err := b.newID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate batch id: %w", err)
	}
	now := b.now().UTC()

	label := in.CutoffLabel
	if in.Cutoff != nil {
		label = in.Cutoff.String()
	}
	if label == "" {
		label = now.Format(time.RFC3339)
	}

	batch := &payroll.Batch{
		ID:          batchID.String(),
		Cutoff:      in.Cutoff,
		CutoffLabel: label,
		PayrollType: in.PayrollType,
		RequestedBy: in.RequestedBy,
		UploadID:    in.UploadID,
		CreatedAt:   now,
	}

	var skipped []string
	for _, summary := range in.Summaries {
		rate, ok := in.Rates[summary.EmployeeCode]
		if !ok {
			skipped = append(skipped, summary.EmployeeCode)
			continue
		}

		payslipID, err := b.newID()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate payslip id: %w", err)
		}
		payslip := b.computePayslip(summary, rate)
		payslip.ID = payslipID.String()
		payslip.BatchID = batch.ID
		payslip.CreatedAt = now
		payslip.UpdatedAt = now
		batch.Payslips = append(batch.Payslips, payslip)
	}

	if len(batch.Payslips) == 0 {
		return nil, skipped, payroll.ErrEmptyBatch
	}
	return batch, skipped, nil
}

func (b *BatchBuilder) computePayslip(summary attendance.Summary, rate payroll.RateConfig) payroll.Payslip {
	hourly := rate.HourlyRate()
	regularHours := summary.RegularHours()
	holidayHours := summary.HolidayHours()
	overtimeHours := summary.OvertimeHours()

	earnings := payroll.Earnings{
		Basic:             regularHours.Mul(hourly).Round(2),
		Overtime:          overtimeHours.Mul(hourly).Mul(rate.OvertimeMultiplier).Round(2),
		Holiday:           holidayHours.Mul(hourly).Mul(rate.HolidayMultiplier).Round(2),
		NightDifferential: rate.NightDifferential,
		Allowance:         rate.Allowance,
	}

	contributions := map[payroll.Scheme]payroll.ContributionShare{
		payroll.SchemeSSS:        b.contributions.Split(rate.SSSContribution),
		payroll.SchemePhilHealth: b.contributions.Split(rate.PhilHealthContribution),
		payroll.SchemePagIBIG:    b.contributions.Split(rate.PagIBIGContribution),
	}

	lateDeduction := decimal.NewFromInt(int64(summary.TardinessMinutes)).Mul(rate.LateDeductionPerMinute).Round(2)
	deductions := payroll.Deductions{
		Tax:        rate.Tax,
		SSS:        contributions[payroll.SchemeSSS].EmployeeShare,
		PhilHealth: contributions[payroll.SchemePhilHealth].EmployeeShare,
		PagIBIG:    contributions[payroll.SchemePagIBIG].EmployeeShare,
		Loan:       rate.Loan,
		Other:      rate.OtherDeduction.Add(lateDeduction),
	}

	gross := earnings.Total()
	return payroll.Payslip{
		EmployeeCode:     summary.EmployeeCode,
		DaysPresent:      summary.DaysPresent,
		RegularHours:     regularHours,
		HolidayHours:     holidayHours,
		OvertimeHours:    overtimeHours,
		TardinessMinutes: summary.TardinessMinutes,
		Earnings:         earnings,
		Deductions:       deductions,
		Contributions:    contributions,
		GrossPay:         gross,
		NetPay:           gross.Sub(deductions.Total()),
		Status:           payroll.PayslipStatusPending,
	}
}
