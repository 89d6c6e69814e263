package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
)

type holidayRepository struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) holiday.HolidayRepository {
	return &holidayRepository{db: db}
}

// ListByYear implements holiday.HolidayRepository.
func (h *holidayRepository) ListByYear(ctx context.Context, year int) ([]holiday.Entry, error) {
	q := GetQuerier(ctx, h.db)

	rows, err := q.Query(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD'), name, type, created_at
		FROM holidays
		WHERE EXTRACT(YEAR FROM date) = $1
		ORDER BY date, type
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var entries []holiday.Entry
	for rows.Next() {
		var e holiday.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.Name, &e.Type, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create implements holiday.HolidayRepository.
func (h *holidayRepository) Create(ctx context.Context, entry holiday.Entry) (*holiday.Entry, error) {
	q := GetQuerier(ctx, h.db)

	err := q.QueryRow(ctx, `
		INSERT INTO holidays (id, date, name, type, created_at)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING created_at
	`, entry.ID, entry.Date, entry.Name, entry.Type, entry.CreatedAt).Scan(&entry.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "uk_holiday_date_type") {
			return nil, holiday.ErrHolidayExists
		}
		return nil, fmt.Errorf("failed to create holiday: %w", err)
	}
	return &entry, nil
}
