package payroll

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type serviceFixture struct {
	store      *memory.Store
	dispatcher *recordingDispatcher
	svc        *PayrollServiceImpl
}

func newServiceFixture(t *testing.T, codes ...string) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore()

	_, err := store.Attendance().CreateUpload(ctx, attendance.Upload{ID: "upload-1", Label: "June A"})
	require.NoError(t, err)
	var summaries []attendance.Summary
	for _, code := range codes {
		summaries = append(summaries, standardSummary(code))
		_, err := store.Rates().Upsert(ctx, standardRate(code))
		require.NoError(t, err)
	}
	summaries = append(summaries, standardSummary("EMP-NORATE"))
	require.NoError(t, store.Attendance().ReplaceSummaries(ctx, "upload-1", summaries))

	dispatcher := newRecordingDispatcher()
	calc := NewContributionCalculator(DefaultEmployeeShareRatio)
	scheduler := NewReleaseScheduler(store.Payroll(), dispatcher, lock.NewMemoryLocker(), &recordingNotifier{}, manila)
	svc := NewPayrollService(store.Payroll(), store.Rates(), store.ChangeRequests(), store.Attendance(), calc, scheduler).(*PayrollServiceImpl)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) }

	return &serviceFixture{store: store, dispatcher: dispatcher, svc: svc}
}

func TestService_GenerateBatch_FromLegacyLabel(t *testing.T) {
	// Setup
	f := newServiceFixture(t, "EMP001", "EMP002")
	ctx := actorContext(officer)

	// Act
	resp, err := f.svc.GenerateBatch(ctx, payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeSemiMonthly),
		CutoffLabel: "June 1-15, 2025",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "June 1-15, 2025", resp.CutoffDate)
	require.NotNil(t, resp.Cutoff)
	assert.Equal(t, 1, resp.Cutoff.StartDay)
	assert.Equal(t, payroll.BatchStatusPending, resp.Status)
	assert.Equal(t, 2, resp.PayslipCount)
	assert.Equal(t, []string{"EMP-NORATE"}, resp.SkippedEmployees)
	assert.Equal(t, officer.UserID, resp.RequestedBy)
	assertDecimal(t, "18380", resp.TotalNetPay)
	require.NotNil(t, resp.ReleaseDate)
	assert.True(t, time.Date(2025, 6, 4, 0, 0, 0, 0, manila).Equal(*resp.ReleaseDate))
	assert.Empty(t, resp.ReleaseWarning)
}

// Test an unreadable label is kept, flagged, and can be corrected later
func TestService_GenerateBatch_UnparseableLabel(t *testing.T) {
	f := newServiceFixture(t, "EMP001")
	ctx := actorContext(officer)

	resp, err := f.svc.GenerateBatch(ctx, payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeSemiMonthly),
		CutoffLabel: "first half of June",
	})
	require.NoError(t, err)

	assert.Equal(t, "first half of June", resp.CutoffDate)
	assert.Nil(t, resp.ReleaseDate)
	assert.NotEmpty(t, resp.ReleaseWarning)

	fixed, err := f.svc.UpdateCutoff(ctx, resp.ID, payroll.UpdateCutoffRequest{
		Cutoff: payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15},
	})
	require.NoError(t, err)
	assert.Equal(t, "June 1-15, 2025", fixed.CutoffDate)
	require.NotNil(t, fixed.ReleaseDate)
	assert.Empty(t, fixed.ReleaseWarning)
}

func TestService_GenerateBatch_DefaultsSemiMonthlyCutoff(t *testing.T) {
	f := newServiceFixture(t, "EMP001")

	resp, err := f.svc.GenerateBatch(actorContext(officer), payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeSemiMonthly),
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Cutoff)
	assert.Equal(t, payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15}, *resp.Cutoff)
	assert.Equal(t, "June 1-15, 2025", resp.CutoffDate)
	require.NotNil(t, resp.ReleaseDate)
	assert.True(t, time.Date(2025, 6, 4, 0, 0, 0, 0, manila).Equal(*resp.ReleaseDate))
}

func TestService_GenerateBatch_Validation(t *testing.T) {
	f := newServiceFixture(t, "EMP001")
	ctx := actorContext(officer)

	_, err := f.svc.GenerateBatch(ctx, payroll.GenerateBatchRequest{PayrollType: "monthly"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "upload_id")
	assert.Contains(t, verrs.ToMap(), "payroll_type")

	_, err = f.svc.GenerateBatch(ctx, payroll.GenerateBatchRequest{UploadID: "nope", PayrollType: "weekly"})
	assert.ErrorIs(t, err, attendance.ErrUploadNotFound)

	_, err = f.svc.GenerateBatch(context.Background(), payroll.GenerateBatchRequest{UploadID: "upload-1", PayrollType: "weekly"})
	assert.Error(t, err, "no claims in context")
}

func TestService_ApproveAndReleaseInfo(t *testing.T) {
	f := newServiceFixture(t, "EMP001")
	resp, err := f.svc.GenerateBatch(actorContext(officer), payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeSemiMonthly),
		Cutoff:      &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15},
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveBatch(actorContext(officer), resp.ID)
	assert.ErrorIs(t, err, payroll.ErrApproverRoleRequired)

	approved, err := f.svc.ApproveBatch(actorContext(approver), resp.ID)
	require.NoError(t, err)
	assert.True(t, approved.Changed)
	again, err := f.svc.ApproveBatch(actorContext(approver), resp.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, reasonNoPendingPayslips, again.Message)

	// June 2 is before the June 4 release
	info, err := f.svc.GetReleaseInfo(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.BatchStatusApproved, info.Status)
	assert.False(t, info.Due)

	f.svc.now = func() time.Time { return time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC) }
	info, err = f.svc.GetReleaseInfo(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, info.Due)

	released, err := f.svc.ReleaseBatch(actorContext(approver), resp.ID)
	require.NoError(t, err)
	assert.True(t, released.Released)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	released2, err := f.svc.ListBatches(context.Background(), payroll.BatchFilter{Released: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, released2, 1)
	assert.Empty(t, released2[0].Payslips, "list responses omit payslips")
}

func TestService_RejectBatch_Deletes(t *testing.T) {
	f := newServiceFixture(t, "EMP001")
	resp, err := f.svc.GenerateBatch(actorContext(officer), payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeWeekly),
	})
	require.NoError(t, err)

	outcome, err := f.svc.RejectBatch(actorContext(approver), resp.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)

	_, err = f.svc.GetBatch(context.Background(), resp.ID)
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)

	again, err := f.svc.RejectBatch(actorContext(approver), resp.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
}

func TestService_ChangeRequests(t *testing.T) {
	f := newServiceFixture(t, "EMP001", "EMP002", "EMP003")
	batch, err := f.svc.GenerateBatch(actorContext(officer), payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeWeekly),
	})
	require.NoError(t, err)

	grouped, err := f.svc.CreateChangeRequest(actorContext(officer), payroll.CreateChangeRequestRequest{
		PayrollBatchID: batch.ID,
		EmployeeCodes:  []string{"EMP001", "EMP002"},
		Changes:        map[string]decimal.Decimal{"allowance": dec("750")},
		Reasons:        "Transport allowance adjustment",
	})
	require.NoError(t, err)
	assert.Equal(t, "batched", grouped.Kind)
	require.NotNil(t, grouped.GroupID)
	assert.Equal(t, []string{"EMP001", "EMP002"}, grouped.EmployeeCodes)

	single, err := f.svc.CreateChangeRequest(actorContext(officer), payroll.CreateChangeRequestRequest{
		PayrollBatchID: batch.ID,
		EmployeeCodes:  []string{"EMP003"},
		Changes:        map[string]decimal.Decimal{"tax": dec("0")},
		Reasons:        "Tax exempt",
	})
	require.NoError(t, err)
	assert.Equal(t, "individual", single.Kind)
	assert.Nil(t, single.GroupID)

	_, err = f.svc.CreateChangeRequest(actorContext(officer), payroll.CreateChangeRequestRequest{
		PayrollBatchID: batch.ID,
		EmployeeCodes:  []string{"EMP999"},
		Changes:        map[string]decimal.Decimal{"tax": dec("0")},
		Reasons:        "Not in batch",
	})
	assert.ErrorIs(t, err, payroll.ErrPayslipNotFound)

	list, err := f.svc.ListChangeRequests(context.Background(), payroll.ChangeRequestFilter{PayrollBatchID: &batch.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "batched", list[0].Kind)
	assert.Equal(t, "individual", list[1].Kind)

	outcome, err := f.svc.ApproveChange(actorContext(approver), grouped.Requests[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Affected)

	outcome, err = f.svc.RejectChange(actorContext(approver), single.Requests[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Affected)

	pending := payroll.ChangeRequestPending
	left, err := f.svc.ListChangeRequests(context.Background(), payroll.ChangeRequestFilter{Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestService_Rates(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.UpsertRate(context.Background(), "EMP010", payroll.UpsertRateRequest{DailyRate: dec("1000")})
	require.NoError(t, err)
	assertDecimal(t, "8", resp.HoursPerDay)
	assertDecimal(t, "125", resp.HourlyRate)
	assertDecimal(t, "1.25", resp.OvertimeMultiplier)

	_, err = f.svc.UpsertRate(context.Background(), "EMP011", payroll.UpsertRateRequest{DailyRate: dec("-1")})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	rates, err := f.svc.ListRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "EMP010", rates[0].EmployeeCode)
}

func TestService_Contributions(t *testing.T) {
	f := newServiceFixture(t, "EMP001", "EMP002")
	batch, err := f.svc.GenerateBatch(actorContext(officer), payroll.GenerateBatchRequest{
		UploadID:    "upload-1",
		PayrollType: string(payroll.PayrollTypeWeekly),
	})
	require.NoError(t, err)

	report, err := f.svc.ContributionReport(context.Background(), batch.ID)
	require.NoError(t, err)
	assertDecimal(t, "1800", report.Schemes[payroll.SchemeSSS].Total)
	assertDecimal(t, "3200", report.GrandTotal.Total)
	assertDecimal(t, "1600", report.GrandTotal.EmployeeShare)

	data, err := f.svc.ExportContributions(context.Background(), batch.ID)
	require.NoError(t, err)

	xlsx, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xlsx.Close()

	rows, err := xlsx.GetRows(contributionsSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)
	assert.Equal(t, "EMP001", rows[3][0])
	assert.Equal(t, "EMP002", rows[4][0])
	assert.Equal(t, "TOTAL", rows[5][0])

	_, err = f.svc.ExportContributions(context.Background(), "missing")
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
}

func TestService_Contributions_AllRates(t *testing.T) {
	f := newServiceFixture(t, "EMP001", "EMP002", "EMP003")

	report, err := f.svc.ContributionReport(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, report.Employees, 3)
	assert.Equal(t, "EMP001", report.Employees[0].EmployeeCode)
	assertDecimal(t, "2700", report.Schemes[payroll.SchemeSSS].Total)
	assertDecimal(t, "4800", report.GrandTotal.Total)
	assertDecimal(t, "2400", report.GrandTotal.EmployerShare)

	data, err := f.svc.ExportContributions(context.Background(), "")
	require.NoError(t, err)
	xlsx, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xlsx.Close()

	title, err := xlsx.GetCellValue(contributionsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Contributions - All employees", title)
}

func boolPtr(b bool) *bool { return &b }
