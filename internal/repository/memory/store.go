// Package memory provides in-memory repositories for development and tests.
package memory

import (
	"sync"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

// =============================================================================
// MEMORY STORE - every repository shares one lock, so multi-entity writes
// (batch + payslips + change requests) are atomic.
// =============================================================================

type Store struct {
	mu sync.RWMutex

	batches        map[string]payroll.Batch
	batchOrder     []string
	rates          map[string]payroll.RateConfig
	changeRequests map[string]payroll.ChangeRequest
	changeOrder    []string
	uploads        map[string]attendance.Upload
	summaries      map[string][]attendance.Summary
	holidays       []holiday.Entry
}

func NewStore() *Store {
	return &Store{
		batches:        make(map[string]payroll.Batch),
		rates:          make(map[string]payroll.RateConfig),
		changeRequests: make(map[string]payroll.ChangeRequest),
		uploads:        make(map[string]attendance.Upload),
		summaries:      make(map[string][]attendance.Summary),
	}
}

func (s *Store) Payroll() *PayrollRepository              { return &PayrollRepository{s} }
func (s *Store) Rates() *RateRepository                   { return &RateRepository{s} }
func (s *Store) ChangeRequests() *ChangeRequestRepository { return &ChangeRequestRepository{s} }
func (s *Store) Attendance() *AttendanceRepository        { return &AttendanceRepository{s} }
func (s *Store) Holidays() *HolidayRepository             { return &HolidayRepository{s} }

func cloneBatch(b payroll.Batch) payroll.Batch {
	b.Payslips = append([]payroll.Payslip(nil), b.Payslips...)
	if b.Cutoff != nil {
		c := *b.Cutoff
		b.Cutoff = &c
	}
	return b
}
