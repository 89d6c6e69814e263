package attendance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

const minutesPerDay = 24 * 60

// ToMinutes converts a clock value to minutes after midnight in [0, 1440).
// Accepted forms: "8:05 AM", "08:05:30 pm", "17:30", "17:30:00", "0830", "930".
func ToMinutes(value string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", attendance.ErrInvalidTimeFormat)
	}

	meridiem := ""
	if strings.HasSuffix(s, "AM") || strings.HasSuffix(s, "PM") {
		meridiem = s[len(s)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}

	hour, minute, err := splitClock(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", attendance.ErrInvalidTimeFormat, value)
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q", attendance.ErrInvalidTimeFormat, value)
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", attendance.ErrInvalidTimeFormat, value)
	}

	return hour*60 + minute, nil
}

// splitClock reads "H:MM", "H:MM:SS" or a bare "HHMM" number. Seconds are dropped.
func splitClock(s string) (hour, minute int, err error) {
	if !strings.Contains(s, ":") {
		if len(s) < 3 || len(s) > 4 {
			return 0, 0, fmt.Errorf("bad numeric clock %q", s)
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("bad numeric clock %q", s)
		}
		return n / 100, n % 100, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("bad clock %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("bad clock %q", s)
		}
		nums[i] = n
	}
	if len(nums) == 3 && nums[2] > 59 {
		return 0, 0, fmt.Errorf("bad seconds %q", s)
	}
	return nums[0], nums[1], nil
}

// DurationMinutes returns the minutes between in and out, wrapping past midnight when out < in.
func DurationMinutes(in, out int) int {
	if out >= in {
		return out - in
	}
	return minutesPerDay - in + out
}

// Duration returns the worked hours between in and out, rounded to two places.
func Duration(in, out int) decimal.Decimal {
	return attendance.Hours(DurationMinutes(in, out))
}

// Tardiness returns how many minutes actualIn is past scheduledIn.
func Tardiness(scheduledIn, actualIn int) int {
	return max(0, actualIn-scheduledIn)
}

// Overtime returns how many minutes actualOut is past scheduledOut.
func Overtime(scheduledOut, actualOut int) int {
	return max(0, actualOut-scheduledOut)
}
