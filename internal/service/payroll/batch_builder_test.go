package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *BatchBuilder {
	b := NewBatchBuilder(NewContributionCalculator(DefaultEmployeeShareRatio))
	b.now = func() time.Time { return time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC) }
	return b
}

func TestBatchBuilder_Generate_ComputesPayslip(t *testing.T) {
	cutoff := &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15}

	batch, skipped, err := newTestBuilder().Generate(GenerateInput{
		Cutoff:      cutoff,
		PayrollType: payroll.PayrollTypeSemiMonthly,
		RequestedBy: "officer-1",
		Summaries:   []attendance.Summary{standardSummary("EMP001")},
		Rates:       map[string]payroll.RateConfig{"EMP001": standardRate("EMP001")},
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, batch.Payslips, 1)

	p := batch.Payslips[0]
	assertDecimal(t, "80", p.RegularHours)
	assertDecimal(t, "8", p.HolidayHours)
	assertDecimal(t, "2", p.OvertimeHours)

	assertDecimal(t, "8000", p.Earnings.Basic)
	assertDecimal(t, "250", p.Earnings.Overtime)
	assertDecimal(t, "1600", p.Earnings.Holiday)
	assertDecimal(t, "500", p.Earnings.Allowance)
	assertDecimal(t, "10350", p.GrossPay)

	assertDecimal(t, "450", p.Deductions.SSS)
	assertDecimal(t, "250", p.Deductions.PhilHealth)
	assertDecimal(t, "100", p.Deductions.PagIBIG)
	assertDecimal(t, "60", p.Deductions.Other, "30 late minutes at 2 per minute")
	assertDecimal(t, "9190", p.NetPay)

	assertDecimal(t, "450", p.Contributions[payroll.SchemeSSS].EmployerShare)
	assert.Equal(t, payroll.PayslipStatusPending, p.Status)
}

func TestBatchBuilder_Generate_StampsBatchOnEveryPayslip(t *testing.T) {
	rates := map[string]payroll.RateConfig{}
	var summaries []attendance.Summary
	for _, code := range []string{"EMP001", "EMP002", "EMP003"} {
		rates[code] = standardRate(code)
		summaries = append(summaries, standardSummary(code))
	}

	batch, _, err := newTestBuilder().Generate(GenerateInput{
		Cutoff:      &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 16, EndDay: 30},
		PayrollType: payroll.PayrollTypeSemiMonthly,
		Summaries:   summaries,
		Rates:       rates,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, "June 16-30, 2025", batch.CutoffLabel)
	ids := make(map[string]bool)
	for _, p := range batch.Payslips {
		assert.Equal(t, batch.ID, p.BatchID)
		assert.False(t, ids[p.ID], "payslip ids must be unique")
		ids[p.ID] = true
	}
	assertDecimal(t, "27570", batch.TotalNetPay())
	assertDecimal(t, "31050", batch.TotalGrossPay())
}

func TestBatchBuilder_Generate_SkipsEmployeesWithoutRate(t *testing.T) {
	batch, skipped, err := newTestBuilder().Generate(GenerateInput{
		PayrollType: payroll.PayrollTypeWeekly,
		Summaries:   []attendance.Summary{standardSummary("EMP001"), standardSummary("EMP404")},
		Rates:       map[string]payroll.RateConfig{"EMP001": standardRate("EMP001")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"EMP404"}, skipped)
	assert.Len(t, batch.Payslips, 1)
	assert.Equal(t, "2025-06-16T08:00:00Z", batch.CutoffLabel, "weekly batch without a cutoff is labelled by generation time")
}

func TestBatchBuilder_Generate_Empty(t *testing.T) {
	_, skipped, err := newTestBuilder().Generate(GenerateInput{
		PayrollType: payroll.PayrollTypeWeekly,
		Summaries:   []attendance.Summary{standardSummary("EMP404")},
	})

	assert.ErrorIs(t, err, payroll.ErrEmptyBatch)
	assert.Equal(t, []string{"EMP404"}, skipped)
}

func TestBatchBuilder_Generate_InvalidType(t *testing.T) {
	_, _, err := newTestBuilder().Generate(GenerateInput{PayrollType: "monthly"})
	assert.ErrorIs(t, err, payroll.ErrInvalidPayrollType)
}

// Test a legacy label that could not be parsed is kept verbatim
func TestBatchBuilder_Generate_KeepsUnparsedLabel(t *testing.T) {
	batch, _, err := newTestBuilder().Generate(GenerateInput{
		CutoffLabel: "1st half of June",
		PayrollType: payroll.PayrollTypeSemiMonthly,
		Summaries:   []attendance.Summary{standardSummary("EMP001")},
		Rates:       map[string]payroll.RateConfig{"EMP001": standardRate("EMP001")},
	})
	require.NoError(t, err)

	assert.Nil(t, batch.Cutoff)
	assert.Equal(t, "1st half of June", batch.CutoffLabel)
}
