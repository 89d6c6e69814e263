package payroll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	approver = user.Actor{UserID: "approver-1", Role: user.RoleApprover}
	officer  = user.Actor{UserID: "officer-1", Role: user.RolePayrollOfficer}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// standardRate gives an hourly rate of 100
func standardRate(code string) payroll.RateConfig {
	return payroll.RateConfig{
		EmployeeCode:           code,
		DailyRate:              dec("800"),
		HoursPerDay:            dec("8"),
		OvertimeMultiplier:     dec("1.25"),
		HolidayMultiplier:      dec("2"),
		Allowance:              dec("500"),
		Tax:                    dec("300"),
		SSSContribution:        dec("900"),
		PhilHealthContribution: dec("500"),
		PagIBIGContribution:    dec("200"),
		LateDeductionPerMinute: dec("2"),
	}
}

func standardSummary(code string) attendance.Summary {
	return attendance.Summary{
		EmployeeCode:     code,
		DaysPresent:      11,
		RegularDays:      10,
		HolidayDays:      1,
		RegularMinutes:   4800,
		HolidayMinutes:   480,
		OvertimeMinutes:  120,
		TardinessMinutes: 30,
	}
}

// approvedBatch stores a batch whose payslips are all approved
func approvedBatch(t *testing.T, repo payroll.PayrollRepository, id string, typ payroll.PayrollType, cutoff *payroll.CutoffPeriod, createdAt time.Time) payroll.Batch {
	t.Helper()
	b := payroll.Batch{
		ID:          id,
		Cutoff:      cutoff,
		CutoffLabel: "legacy",
		PayrollType: typ,
		CreatedAt:   createdAt,
		Payslips: []payroll.Payslip{
			{ID: id + "-1", BatchID: id, EmployeeCode: "EMP001", Status: payroll.PayslipStatusApproved, NetPay: dec("100")},
			{ID: id + "-2", BatchID: id, EmployeeCode: "EMP002", Status: payroll.PayslipStatusApproved, NetPay: dec("200")},
		},
	}
	if cutoff != nil {
		b.CutoffLabel = cutoff.String()
	}
	require.NoError(t, repo.CreateBatch(context.Background(), b))
	return b
}

func actorContext(actor user.Actor) context.Context {
	auth := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, _ := auth.Encode(map[string]interface{}{
		"user_id": actor.UserID,
		"role":    string(actor.Role),
	})
	return jwtauth.NewContext(context.Background(), token, nil)
}

// recordingDispatcher counts dispatches and can block or fail on demand
type recordingDispatcher struct {
	mu      sync.Mutex
	orders  []payroll.ReleaseOrder
	calls   atomic.Int32
	fail    atomic.Bool
	started chan struct{}
	proceed chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{}
}

func (d *recordingDispatcher) DispatchRelease(ctx context.Context, order payroll.ReleaseOrder) error {
	d.calls.Add(1)
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.proceed != nil {
		<-d.proceed
	}
	if d.fail.Load() {
		return errors.New("disbursement endpoint unavailable")
	}
	d.mu.Lock()
	d.orders = append(d.orders, order)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) Orders() []payroll.ReleaseOrder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]payroll.ReleaseOrder(nil), d.orders...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(name string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, name)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newTestStore() *memory.Store {
	return memory.NewStore()
}
