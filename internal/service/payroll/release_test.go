package payroll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manila = time.FixedZone("PHT", 8*60*60)

func TestComputeReleaseInstant(t *testing.T) {
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		batch   payroll.Batch
		want    time.Time
		wantErr error
	}{
		{
			name:  "weekly releases one hour after creation",
			batch: payroll.Batch{PayrollType: payroll.PayrollTypeWeekly, CreatedAt: created},
			want:  time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "first half releases on the 4th",
			batch: payroll.Batch{
				PayrollType: payroll.PayrollTypeSemiMonthly,
				Cutoff:      &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15},
				CreatedAt:   created,
			},
			want: time.Date(2025, 6, 4, 0, 0, 0, 0, manila),
		},
		{
			name: "second half releases on the 19th",
			batch: payroll.Batch{
				PayrollType: payroll.PayrollTypeSemiMonthly,
				Cutoff:      &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 16, EndDay: 30},
				CreatedAt:   created,
			},
			want: time.Date(2025, 6, 19, 0, 0, 0, 0, manila),
		},
		{
			name:    "semi-monthly without cutoff has no instant",
			batch:   payroll.Batch{PayrollType: payroll.PayrollTypeSemiMonthly, CutoffLabel: "sometime in June"},
			wantErr: payroll.ErrUnparseableCutoff,
		},
		{
			name:    "unknown payroll type",
			batch:   payroll.Batch{PayrollType: "monthly"},
			wantErr: payroll.ErrInvalidPayrollType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeReleaseInstant(&tt.batch, manila)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s, got %s", tt.want, *got)
		})
	}
}

// Test the legacy label path end to end: parse, then compute
func TestComputeReleaseInstant_FromLegacyLabel(t *testing.T) {
	cutoff, err := payroll.ParseCutoffLabel("June 1-15, 2025")
	require.NoError(t, err)

	got, err := ComputeReleaseInstant(&payroll.Batch{PayrollType: payroll.PayrollTypeSemiMonthly, Cutoff: cutoff}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), *got)
}

type releaseFixture struct {
	store      *memory.Store
	dispatcher *recordingDispatcher
	notifier   *recordingNotifier
	locker     *lock.MemoryLocker
	scheduler  *ReleaseScheduler
}

func newReleaseFixture() *releaseFixture {
	f := &releaseFixture{
		store:      newTestStore(),
		dispatcher: newRecordingDispatcher(),
		notifier:   &recordingNotifier{},
		locker:     lock.NewMemoryLocker(),
	}
	f.scheduler = NewReleaseScheduler(f.store.Payroll(), f.dispatcher, f.locker, f.notifier, manila)
	return f
}

func TestReleaseScheduler_ReleasesWhenDue(t *testing.T) {
	// Setup
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "weekly-1", payroll.PayrollTypeWeekly, nil, created)

	// Act: before the instant
	early, err := f.scheduler.CheckAndReleaseDueBatches(ctx, created.Add(59*time.Minute))
	require.NoError(t, err)

	// Act: at the instant
	due, err := f.scheduler.CheckAndReleaseDueBatches(ctx, created.Add(time.Hour))
	require.NoError(t, err)

	// Act: a later tick
	later, err := f.scheduler.CheckAndReleaseDueBatches(ctx, created.Add(2*time.Hour))
	require.NoError(t, err)

	// Assert
	assert.Empty(t, early)
	assert.Equal(t, []string{"weekly-1"}, due)
	assert.Empty(t, later)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
	assert.Equal(t, []string{EventPayrollReleased}, f.notifier.Events())

	orders := f.dispatcher.Orders()
	require.Len(t, orders, 1)
	assert.ElementsMatch(t, []string{"weekly-1-1", "weekly-1-2"}, orders[0].PayslipIDs)

	batch, err := f.store.Payroll().GetBatch(ctx, "weekly-1")
	require.NoError(t, err)
	assert.True(t, batch.Released)
	require.NotNil(t, batch.ReleaseDispatchedAt)
}

func TestReleaseScheduler_SemiMonthlyInLocation(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	cutoff := &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 16, EndDay: 30}
	approvedBatch(t, f.store.Payroll(), "semi-1", payroll.PayrollTypeSemiMonthly, cutoff, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	// 2025-06-18T16:00Z is 00:00 on the 19th in Manila
	before, err := f.scheduler.CheckAndReleaseDueBatches(ctx, time.Date(2025, 6, 18, 15, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	at, err := f.scheduler.CheckAndReleaseDueBatches(ctx, time.Date(2025, 6, 18, 16, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Empty(t, before)
	assert.Equal(t, []string{"semi-1"}, at)
}

// Test overlapping ticks dispatch a batch exactly once
func TestReleaseScheduler_OverlappingTicksDispatchOnce(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	f.dispatcher.started = make(chan struct{}, 1)
	f.dispatcher.proceed = make(chan struct{})
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "weekly-1", payroll.PayrollTypeWeekly, nil, created)
	now := created.Add(time.Hour)

	var first []string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = f.scheduler.CheckAndReleaseDueBatches(ctx, now)
	}()

	// The first tick is inside the dispatch; a second tick (or replica) must not dispatch
	<-f.dispatcher.started
	replica := NewReleaseScheduler(f.store.Payroll(), f.dispatcher, f.locker, f.notifier, manila)
	second, err := replica.CheckAndReleaseDueBatches(ctx, now.Add(time.Second))
	require.NoError(t, err)
	third, err := f.scheduler.CheckAndReleaseDueBatches(ctx, now.Add(2*time.Second))
	require.NoError(t, err)

	close(f.dispatcher.proceed)
	wg.Wait()

	assert.Equal(t, []string{"weekly-1"}, first)
	assert.Empty(t, second)
	assert.Empty(t, third)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
}

// Test many concurrent ticks racing on the same due batch
func TestReleaseScheduler_ConcurrentTicks(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		approvedBatch(t, f.store.Payroll(), fmt.Sprintf("weekly-%d", i), payroll.PayrollTypeWeekly, nil, created)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	released := map[string]int{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := f.scheduler.CheckAndReleaseDueBatches(ctx, created.Add(2*time.Hour))
			assert.NoError(t, err)
			mu.Lock()
			for _, id := range ids {
				released[id]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, released, 5)
	for id, n := range released {
		assert.Equal(t, 1, n, id)
	}
	assert.Equal(t, int32(5), f.dispatcher.calls.Load())
}

func TestReleaseScheduler_RetriesAfterDispatchFailure(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "weekly-1", payroll.PayrollTypeWeekly, nil, created)
	now := created.Add(time.Hour)

	f.dispatcher.fail.Store(true)
	failed, err := f.scheduler.CheckAndReleaseDueBatches(ctx, now)
	require.NoError(t, err, "per-batch failures are logged, not returned")
	assert.Empty(t, failed)

	batch, err := f.store.Payroll().GetBatch(ctx, "weekly-1")
	require.NoError(t, err)
	assert.False(t, batch.Released)
	ok, err := f.locker.TryLock(ctx, releaseLockKey("weekly-1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claim is dropped after failure")
	require.NoError(t, f.locker.Unlock(ctx, releaseLockKey("weekly-1")))

	f.dispatcher.fail.Store(false)
	retried, err := f.scheduler.CheckAndReleaseDueBatches(ctx, now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, []string{"weekly-1"}, retried)
	assert.Equal(t, int32(2), f.dispatcher.calls.Load())
	assert.Len(t, f.dispatcher.Orders(), 1)
}

// staleCandidates serves a candidate list captured before the batches changed
type staleCandidates struct {
	payroll.PayrollRepository
	candidates []payroll.Batch
}

func (s *staleCandidates) ListReleaseCandidates(context.Context) ([]payroll.Batch, error) {
	return s.candidates, nil
}

// Test a batch deleted or reopened after listing is never dispatched
func TestReleaseScheduler_SkipsChangedBatches(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	gone := payroll.Batch{ID: "gone", PayrollType: payroll.PayrollTypeWeekly, CreatedAt: created}
	reopened := approvedBatch(t, f.store.Payroll(), "reopened", payroll.PayrollTypeWeekly, nil, created)
	stale := reopened
	stale.Payslips = append([]payroll.Payslip(nil), reopened.Payslips...)
	reopened.Payslips[0].Status = payroll.PayslipStatusPending
	require.NoError(t, f.store.Payroll().CreateBatch(ctx, reopened))

	repo := &staleCandidates{PayrollRepository: f.store.Payroll(), candidates: []payroll.Batch{gone, stale}}
	scheduler := NewReleaseScheduler(repo, f.dispatcher, f.locker, f.notifier, manila)

	released, err := scheduler.CheckAndReleaseDueBatches(ctx, created.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Empty(t, released)
	assert.Zero(t, f.dispatcher.calls.Load())
	assert.Empty(t, f.notifier.Events())
}

func TestReleaseScheduler_UnparseableCutoffNeverAutoReleased(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	approvedBatch(t, f.store.Payroll(), "legacy", payroll.PayrollTypeSemiMonthly, nil, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	released, err := f.scheduler.CheckAndReleaseDueBatches(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Empty(t, released)
	assert.Zero(t, f.dispatcher.calls.Load())
}

func TestReleaseScheduler_ReleaseNow(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "approved", payroll.PayrollTypeWeekly, nil, created)
	pendingBatch(t, f.store, "pending", "EMP001")
	now := created.Add(5 * time.Minute)

	err := f.scheduler.ReleaseNow(ctx, officer, "approved", now)
	assert.ErrorIs(t, err, payroll.ErrApproverRoleRequired)

	err = f.scheduler.ReleaseNow(ctx, approver, "pending", now)
	assert.ErrorIs(t, err, payroll.ErrBatchNotApproved)

	err = f.scheduler.ReleaseNow(ctx, approver, "missing", now)
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)

	require.NoError(t, f.scheduler.ReleaseNow(ctx, approver, "approved", now))
	err = f.scheduler.ReleaseNow(ctx, approver, "approved", now)
	assert.ErrorIs(t, err, payroll.ErrBatchAlreadyReleased)

	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	// The timer does not release it a second time
	released, err := f.scheduler.CheckAndReleaseDueBatches(ctx, created.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestReleaseScheduler_ReleaseNow_InProgress(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "approved", payroll.PayrollTypeWeekly, nil, created)

	ok, err := f.locker.TryLock(ctx, releaseLockKey("approved"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = f.scheduler.ReleaseNow(ctx, approver, "approved", created)
	assert.ErrorIs(t, err, payroll.ErrReleaseInProgress)
	assert.Zero(t, f.dispatcher.calls.Load())
}

func TestReleaseScheduler_DispatchErrorIsWrapped(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	f.dispatcher.fail.Store(true)
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	approvedBatch(t, f.store.Payroll(), "approved", payroll.PayrollTypeWeekly, nil, created)

	err := f.scheduler.ReleaseNow(ctx, approver, "approved", created)
	assert.ErrorIs(t, err, payroll.ErrReleaseDispatchFailed)
}

// Test approvers racing on a batch without a release instant dispatch once
func TestReleaseScheduler_ConcurrentReleaseNowWithoutCutoff(t *testing.T) {
	ctx := context.Background()
	f := newReleaseFixture()
	f.dispatcher.started = make(chan struct{}, 1)
	f.dispatcher.proceed = make(chan struct{})
	approvedBatch(t, f.store.Payroll(), "legacy", payroll.PayrollTypeSemiMonthly, nil, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	now := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var first error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = f.scheduler.ReleaseNow(ctx, approver, "legacy", now)
	}()

	<-f.dispatcher.started
	second := f.scheduler.ReleaseNow(ctx, approver, "legacy", now.Add(time.Second))

	close(f.dispatcher.proceed)
	wg.Wait()

	require.NoError(t, first)
	assert.ErrorIs(t, second, payroll.ErrReleaseInProgress)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
}

// Test a cutoff correction cannot move a batch out from under an in-flight release
func TestReleaseScheduler_CutoffChangeDuringDispatch(t *testing.T) {
	f := newReleaseFixture()
	f.dispatcher.started = make(chan struct{}, 1)
	f.dispatcher.proceed = make(chan struct{})
	ctx := actorContext(approver)
	cutoff := &payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 1, EndDay: 15}
	approvedBatch(t, f.store.Payroll(), "semi-1", payroll.PayrollTypeSemiMonthly, cutoff, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := NewPayrollService(f.store.Payroll(), f.store.Rates(), f.store.ChangeRequests(), f.store.Attendance(),
		NewContributionCalculator(DefaultEmployeeShareRatio), f.scheduler)
	now := time.Date(2025, 6, 4, 0, 0, 0, 0, manila)

	var wg sync.WaitGroup
	var ticked []string
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticked, _ = f.scheduler.CheckAndReleaseDueBatches(ctx, now)
	}()

	<-f.dispatcher.started
	_, err := svc.UpdateCutoff(ctx, "semi-1", payroll.UpdateCutoffRequest{
		Cutoff: payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 16, EndDay: 30},
	})
	assert.ErrorIs(t, err, payroll.ErrReleaseInProgress)
	err = f.scheduler.ReleaseNow(ctx, approver, "semi-1", now.Add(time.Second))
	assert.ErrorIs(t, err, payroll.ErrReleaseInProgress)

	close(f.dispatcher.proceed)
	wg.Wait()

	assert.Equal(t, []string{"semi-1"}, ticked)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	_, err = svc.UpdateCutoff(ctx, "semi-1", payroll.UpdateCutoffRequest{
		Cutoff: payroll.CutoffPeriod{Year: 2025, Month: time.June, StartDay: 16, EndDay: 30},
	})
	assert.ErrorIs(t, err, payroll.ErrBatchAlreadyReleased)
}
