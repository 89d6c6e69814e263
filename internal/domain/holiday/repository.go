package holiday

import "context"

type HolidayRepository interface {
	ListByYear(ctx context.Context, year int) ([]Entry, error)
	Create(ctx context.Context, entry Entry) (*Entry, error)
}
