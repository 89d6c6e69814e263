package holiday

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
)

// DateLayout is the canonical key used for every date comparison.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-Jan-06",
	"2-Jan-06",
	"02-Jan-2006",
	"2-Jan-2006",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// NormalizeDate converts a date from any supported source format to YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", holiday.ErrInvalidDate, raw)
}

// Classifier answers holiday lookups against an already fetched calendar.
type Classifier struct {
	byDate map[string]holiday.Entry
}

// NewClassifier indexes the calendar by normalized date. Entries whose date
// cannot be read are skipped. When two entries share a date the higher-ranked
// type is kept.
func NewClassifier(entries []holiday.Entry) *Classifier {
	c := &Classifier{byDate: make(map[string]holiday.Entry, len(entries))}
	for _, e := range entries {
		key, err := NormalizeDate(e.Date)
		if err != nil {
			slog.Warn("Skipping holiday with unreadable date", "name", e.Name, "date", e.Date)
			continue
		}
		if existing, ok := c.byDate[key]; ok && existing.Type.Rank() >= e.Type.Rank() {
			continue
		}
		c.byDate[key] = e
	}
	return c
}

// Classify returns the holiday type of date, or TypeNone. An unreadable date is never a holiday.
func (c *Classifier) Classify(date string) holiday.Type {
	key, err := NormalizeDate(date)
	if err != nil {
		return holiday.TypeNone
	}
	e, ok := c.byDate[key]
	if !ok || !e.Type.Valid() {
		return holiday.TypeNone
	}
	return e.Type
}

func (c *Classifier) IsHoliday(date string) bool {
	return c.Classify(date) != holiday.TypeNone
}
