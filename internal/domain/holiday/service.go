package holiday

import "context"

// HolidayService exposes the holiday calendar
type HolidayService interface {
	ListByYear(ctx context.Context, year int) ([]HolidayResponse, error)
	Create(ctx context.Context, req CreateHolidayRequest) (*HolidayResponse, error)
}
