package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func testBatch(t *testing.T, statuses ...payroll.PayslipStatus) payroll.Batch {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	b := payroll.Batch{
		ID:          newID(t),
		Cutoff:      &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15},
		CutoffLabel: "June 1-15, 2025",
		PayrollType: payroll.PayrollTypeSemiMonthly,
		RequestedBy: "officer-1",
		CreatedAt:   now,
	}
	for i, st := range statuses {
		b.Payslips = append(b.Payslips, payroll.Payslip{
			ID:           newID(t),
			BatchID:      b.ID,
			EmployeeCode: []string{"EMP001", "EMP002", "EMP003"}[i],
			RegularHours: decimal.NewFromInt(80),
			Earnings:     payroll.Earnings{Basic: decimal.NewFromInt(8000)},
			Contributions: map[payroll.Scheme]payroll.ContributionShare{
				payroll.SchemeSSS: {Total: decimal.NewFromInt(900), EmployeeShare: decimal.NewFromInt(450), EmployerShare: decimal.NewFromInt(450)},
			},
			GrossPay:  decimal.NewFromInt(8000),
			NetPay:    decimal.NewFromInt(7550),
			Status:    st,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return b
}

// Test batch round trip keeps cutoff, payslips and contributions
func TestPayrollRepository_CreateAndGetBatch(t *testing.T) {
	// Setup
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	batch := testBatch(t, payroll.PayslipStatusPending, payroll.PayslipStatusPending)

	// Act
	require.NoError(t, repo.CreateBatch(ctx, batch))
	got, err := repo.GetBatch(ctx, batch.ID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got.Cutoff)
	assert.Equal(t, *batch.Cutoff, *got.Cutoff)
	assert.Len(t, got.Payslips, 2)
	assert.True(t, got.Payslips[0].Contributions[payroll.SchemeSSS].EmployeeShare.Equal(decimal.NewFromInt(450)))
	assert.True(t, got.TotalNetPay().Equal(decimal.NewFromInt(15100)))

	_, err = repo.GetBatch(ctx, newID(t))
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
}

func TestPayrollRepository_DeleteBatch_Cascades(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	changes := postgresql.NewChangeRequestRepository(setup.DB)
	batch := testBatch(t, payroll.PayslipStatusPending)
	require.NoError(t, repo.CreateBatch(ctx, batch))

	crID := newID(t)
	require.NoError(t, changes.Create(ctx, []payroll.ChangeRequest{{
		ID:             crID,
		PayrollBatchID: batch.ID,
		EmployeeCode:   "EMP001",
		Changes:        map[string]decimal.Decimal{"allowance": decimal.NewFromInt(100)},
		Reasons:        "adjustment",
		Status:         payroll.ChangeRequestPending,
		CreatedAt:      time.Now().UTC(),
	}}))

	deleted, err := repo.DeleteBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetBatch(ctx, batch.ID)
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
	_, err = changes.GetByID(ctx, crID)
	assert.ErrorIs(t, err, payroll.ErrChangeRequestNotFound)

	var payslips int
	require.NoError(t, setup.DB.QueryRow(ctx, `SELECT COUNT(*) FROM payslips WHERE batch_id = $1`, batch.ID).Scan(&payslips))
	assert.Zero(t, payslips)
}

func TestPayrollRepository_ApproveAndRelease(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	batch := testBatch(t, payroll.PayslipStatusPending, payroll.PayslipStatusPending)
	require.NoError(t, repo.CreateBatch(ctx, batch))

	candidates, err := repo.ListReleaseCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	n, err := repo.UpdatePayslipStatus(ctx, batch.ID, payroll.PayslipStatusPending, payroll.PayslipStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	candidates, err = repo.ListReleaseCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	deleted, err := repo.DeleteBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "approved batches are not deleted")

	at := time.Now().UTC().Truncate(time.Microsecond)
	first, err := repo.MarkReleased(ctx, batch.ID, at)
	require.NoError(t, err)
	second, err := repo.MarkReleased(ctx, batch.ID, at)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	candidates, err = repo.ListReleaseCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRateRepository_Upsert(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewRateRepository(setup.DB)

	rate := payroll.RateConfig{
		EmployeeCode:       "EMP001",
		DailyRate:          decimal.NewFromInt(800),
		HoursPerDay:        decimal.NewFromInt(8),
		OvertimeMultiplier: decimal.RequireFromString("1.25"),
		HolidayMultiplier:  decimal.NewFromInt(2),
		UpdatedAt:          time.Now().UTC(),
	}
	_, err := repo.Upsert(ctx, rate)
	require.NoError(t, err)

	rate.DailyRate = decimal.NewFromInt(900)
	saved, err := repo.Upsert(ctx, rate)
	require.NoError(t, err)
	assert.True(t, saved.DailyRate.Equal(decimal.NewFromInt(900)))

	rates, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rates, 1)

	_, err = repo.GetByEmployee(ctx, "EMP404")
	assert.ErrorIs(t, err, payroll.ErrRateConfigNotFound)
}

func TestHolidayRepository_CreateAndList(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewHolidayRepository(setup.DB)

	entry := holiday.Entry{ID: newID(t), Date: "2025-12-25", Name: "Christmas Day", Type: holiday.TypeRegular, CreatedAt: time.Now().UTC()}
	_, err := repo.Create(ctx, entry)
	require.NoError(t, err)

	entry.ID = newID(t)
	_, err = repo.Create(ctx, entry)
	assert.ErrorIs(t, err, holiday.ErrHolidayExists)

	entries, err := repo.ListByYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-12-25", entries[0].Date)

	entries, err = repo.ListByYear(ctx, 2024)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
