package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

type PayrollRepository struct {
	s *Store
}

var _ payroll.PayrollRepository = (*PayrollRepository)(nil)

func (r *PayrollRepository) CreateBatch(_ context.Context, batch payroll.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.batches[batch.ID]; !exists {
		r.s.batchOrder = append(r.s.batchOrder, batch.ID)
	}
	r.s.batches[batch.ID] = cloneBatch(batch)
	return nil
}

func (r *PayrollRepository) GetBatch(_ context.Context, id string) (payroll.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.batches[id]
	if !ok {
		return payroll.Batch{}, payroll.ErrBatchNotFound
	}
	return cloneBatch(b), nil
}

func (r *PayrollRepository) ListBatches(_ context.Context, filter payroll.BatchFilter) ([]payroll.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var batches []payroll.Batch
	// Newest first, like the postgres ORDER BY created_at DESC
	for i := len(r.s.batchOrder) - 1; i >= 0; i-- {
		b := r.s.batches[r.s.batchOrder[i]]
		if filter.PayrollType != nil && b.PayrollType != *filter.PayrollType {
			continue
		}
		if filter.Released != nil && b.Released != *filter.Released {
			continue
		}
		batches = append(batches, cloneBatch(b))
	}
	return batches, nil
}

func (r *PayrollRepository) ListReleaseCandidates(_ context.Context) ([]payroll.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var batches []payroll.Batch
	for _, id := range r.s.batchOrder {
		b := r.s.batches[id]
		if !b.Released && b.IsApproved() {
			batches = append(batches, cloneBatch(b))
		}
	}
	return batches, nil
}

func (r *PayrollRepository) UpdatePayslipStatus(_ context.Context, batchID string, from, to payroll.PayslipStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok {
		return 0, nil
	}
	b = cloneBatch(b)
	var n int64
	now := time.Now().UTC()
	for i := range b.Payslips {
		if b.Payslips[i].Status == from {
			b.Payslips[i].Status = to
			b.Payslips[i].UpdatedAt = now
			n++
		}
	}
	r.s.batches[batchID] = b
	return n, nil
}

func (r *PayrollRepository) UpdateCutoff(_ context.Context, batchID string, cutoff payroll.CutoffPeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok {
		return payroll.ErrBatchNotFound
	}
	if b.Released {
		return payroll.ErrBatchAlreadyReleased
	}
	b.Cutoff = &cutoff
	b.CutoffLabel = cutoff.String()
	r.s.batches[batchID] = b
	return nil
}

func (r *PayrollRepository) DeleteBatch(_ context.Context, batchID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok || b.Released {
		return false, nil
	}
	for _, p := range b.Payslips {
		if p.Status == payroll.PayslipStatusApproved {
			return false, nil
		}
	}

	delete(r.s.batches, batchID)
	r.s.batchOrder = removeID(r.s.batchOrder, batchID)

	for id, cr := range r.s.changeRequests {
		if cr.PayrollBatchID == batchID {
			delete(r.s.changeRequests, id)
			r.s.changeOrder = removeID(r.s.changeOrder, id)
		}
	}
	return true, nil
}

func (r *PayrollRepository) MarkReleased(_ context.Context, batchID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok || b.Released {
		return false, nil
	}
	b.Released = true
	b.ReleaseDispatchedAt = &at
	r.s.batches[batchID] = b
	return true, nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ========== RATES ==========

type RateRepository struct {
	s *Store
}

var _ payroll.RateRepository = (*RateRepository)(nil)

func (r *RateRepository) GetByEmployee(_ context.Context, employeeCode string) (payroll.RateConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rate, ok := r.s.rates[employeeCode]
	if !ok {
		return payroll.RateConfig{}, payroll.ErrRateConfigNotFound
	}
	return rate, nil
}

func (r *RateRepository) Upsert(_ context.Context, rate payroll.RateConfig) (payroll.RateConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.rates[rate.EmployeeCode] = rate
	return rate, nil
}

func (r *RateRepository) List(_ context.Context) ([]payroll.RateConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rates := make([]payroll.RateConfig, 0, len(r.s.rates))
	for _, rate := range r.s.rates {
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].EmployeeCode < rates[j].EmployeeCode })
	return rates, nil
}

// ========== CHANGE REQUESTS ==========

type ChangeRequestRepository struct {
	s *Store
}

var _ payroll.ChangeRequestRepository = (*ChangeRequestRepository)(nil)

func (r *ChangeRequestRepository) Create(_ context.Context, requests []payroll.ChangeRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, req := range requests {
		if _, exists := r.s.changeRequests[req.ID]; !exists {
			r.s.changeOrder = append(r.s.changeOrder, req.ID)
		}
		r.s.changeRequests[req.ID] = req
	}
	return nil
}

func (r *ChangeRequestRepository) GetByID(_ context.Context, id string) (payroll.ChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.changeRequests[id]
	if !ok {
		return payroll.ChangeRequest{}, payroll.ErrChangeRequestNotFound
	}
	return req, nil
}

func (r *ChangeRequestRepository) ListByGroup(_ context.Context, groupID string) ([]payroll.ChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var requests []payroll.ChangeRequest
	for _, id := range r.s.changeOrder {
		req := r.s.changeRequests[id]
		if req.GroupID != nil && *req.GroupID == groupID {
			requests = append(requests, req)
		}
	}
	return requests, nil
}

func (r *ChangeRequestRepository) List(_ context.Context, filter payroll.ChangeRequestFilter) ([]payroll.ChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var requests []payroll.ChangeRequest
	for _, id := range r.s.changeOrder {
		req := r.s.changeRequests[id]
		if filter.PayrollBatchID != nil && req.PayrollBatchID != *filter.PayrollBatchID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (r *ChangeRequestRepository) UpdateStatus(_ context.Context, ids []string, from, to payroll.ChangeRequestStatus, decidedBy string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, id := range ids {
		req, ok := r.s.changeRequests[id]
		if !ok || req.Status != from {
			continue
		}
		by, when := decidedBy, at
		req.Status = to
		req.DecidedBy = &by
		req.DecidedAt = &when
		r.s.changeRequests[id] = req
		n++
	}
	return n, nil
}
