package payroll

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CutoffPeriod is the structured pay period of a batch. It is formatted only
// for display and never re-derived from its label.
type CutoffPeriod struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	StartDay int        `json:"start_day"`
	EndDay   int        `json:"end_day"`
}

// String formats the period as "June 1-15, 2025".
func (c CutoffPeriod) String() string {
	return fmt.Sprintf("%s %d-%d, %d", c.Month, c.StartDay, c.EndDay, c.Year)
}

func (c CutoffPeriod) Validate() error {
	if c.Month < time.January || c.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidCutoff, c.Month)
	}
	last := daysIn(c.Year, c.Month)
	if c.StartDay < 1 || c.EndDay > last || c.StartDay > c.EndDay {
		return fmt.Errorf("%w: days %d-%d", ErrInvalidCutoff, c.StartDay, c.EndDay)
	}
	return nil
}

// IsFirstHalf reports whether the period starts in the first half of the month.
func (c CutoffPeriod) IsFirstHalf() bool {
	return c.StartDay <= 15
}

// SemiMonthlyCutoff returns the half-month period containing t.
func SemiMonthlyCutoff(t time.Time) CutoffPeriod {
	if t.Day() <= 15 {
		return CutoffPeriod{Year: t.Year(), Month: t.Month(), StartDay: 1, EndDay: 15}
	}
	return CutoffPeriod{Year: t.Year(), Month: t.Month(), StartDay: 16, EndDay: daysIn(t.Year(), t.Month())}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var cutoffLabelRegex = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{1,2})\s*-\s*(\d{1,2}),\s*(\d{4})$`)

// ParseCutoffLabel reads a legacy "<Month> <start>-<end>, <year>" label.
// Only used when ingesting labels from outside; stored batches keep the structured value.
func ParseCutoffLabel(label string) (*CutoffPeriod, error) {
	m := cutoffLabelRegex.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnparseableCutoff, label)
	}

	month, ok := parseMonth(m[1])
	if !ok {
		return nil, fmt.Errorf("%w: unknown month %q", ErrUnparseableCutoff, m[1])
	}
	start, _ := strconv.Atoi(m[2])
	end, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[4])

	cutoff := CutoffPeriod{Year: year, Month: month, StartDay: start, EndDay: end}
	if err := cutoff.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableCutoff, err)
	}
	return &cutoff, nil
}

func parseMonth(s string) (time.Month, bool) {
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Month(), true
		}
	}
	return 0, false
}
