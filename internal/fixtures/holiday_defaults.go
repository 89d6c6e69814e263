package fixtures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/google/uuid"
)

// ==========================================
// DEFAULT HOLIDAY CALENDAR
// ==========================================

type defaultHoliday struct {
	month time.Month
	day   int
	name  string
	kind  holiday.Type
}

// Fixed-date national holidays. Moveable feasts (Holy Week, Eid) are
// proclaimed yearly and must be added through the API.
var fixedHolidays = []defaultHoliday{
	// Regular holidays
	{time.January, 1, "New Year's Day", holiday.TypeRegular},
	{time.April, 9, "Araw ng Kagitingan", holiday.TypeRegular},
	{time.May, 1, "Labor Day", holiday.TypeRegular},
	{time.June, 12, "Independence Day", holiday.TypeRegular},
	{time.November, 30, "Bonifacio Day", holiday.TypeRegular},
	{time.December, 25, "Christmas Day", holiday.TypeRegular},
	{time.December, 30, "Rizal Day", holiday.TypeRegular},

	// Special non-working days
	{time.August, 21, "Ninoy Aquino Day", holiday.TypeSpecialNonWorking},
	{time.November, 1, "All Saints' Day", holiday.TypeSpecialNonWorking},
	{time.December, 8, "Feast of the Immaculate Conception", holiday.TypeSpecialNonWorking},
	{time.December, 31, "Last Day of the Year", holiday.TypeSpecialNonWorking},

	// Special working days
	{time.February, 25, "EDSA People Power Revolution Anniversary", holiday.TypeSpecial},
}

// GetDefaultHolidays returns the national calendar for one year
func GetDefaultHolidays(year int) []holiday.Entry {
	entries := make([]holiday.Entry, 0, len(fixedHolidays)+1)
	for _, h := range fixedHolidays {
		entries = append(entries, holiday.Entry{
			Date: time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
			Name: h.name,
			Type: h.kind,
		})
	}

	entries = append(entries, holiday.Entry{
		Date: lastWeekdayOf(year, time.August, time.Monday).Format(time.DateOnly),
		Name: "National Heroes Day",
		Type: holiday.TypeRegular,
	})
	return entries
}

func lastWeekdayOf(year int, month time.Month, weekday time.Weekday) time.Time {
	t := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for t.Weekday() != weekday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// SeedHolidays stores the default calendar for each year, skipping entries
// that already exist. It returns the number of entries created.
func SeedHolidays(ctx context.Context, repo holiday.HolidayRepository, years ...int) (int, error) {
	created := 0
	for _, year := range years {
		for _, entry := range GetDefaultHolidays(year) {
			id, err := uuid.NewV7()
			if err != nil {
				return created, fmt.Errorf("failed to generate holiday id: %w", err)
			}
			entry.ID = id.String()
			entry.CreatedAt = time.Now().UTC()

			if _, err := repo.Create(ctx, entry); err != nil {
				if errors.Is(err, holiday.ErrHolidayExists) {
					continue
				}
				return created, fmt.Errorf("failed to seed holiday %s: %w", entry.Date, err)
			}
			created++
		}
	}

	slog.Info("Default holidays seeded", "years", years, "created", created)
	return created, nil
}
