package holiday

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid holiday date")
	ErrInvalidHolidayType = errors.New("invalid holiday type")
	ErrHolidayExists      = errors.New("holiday already exists for this date")
)
