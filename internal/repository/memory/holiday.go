package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
)

type HolidayRepository struct {
	s *Store
}

var _ holiday.HolidayRepository = (*HolidayRepository)(nil)

// ListByYear matches on the canonical YYYY-MM-DD date the service stores.
func (r *HolidayRepository) ListByYear(_ context.Context, year int) ([]holiday.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix := fmt.Sprintf("%04d-", year)
	var entries []holiday.Entry
	for _, e := range r.s.holidays {
		if strings.HasPrefix(e.Date, prefix) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *HolidayRepository) Create(_ context.Context, entry holiday.Entry) (*holiday.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.holidays {
		if e.Date == entry.Date && e.Type == entry.Type {
			return nil, holiday.ErrHolidayExists
		}
	}
	r.s.holidays = append(r.s.holidays, entry)
	return &entry, nil
}
