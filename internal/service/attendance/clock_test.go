package attendance

import (
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes_AcceptedFormats(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8:00 AM", 480},
		{"08:05 am", 485},
		{"12:00 AM", 0},
		{"12:30 AM", 30},
		{"12:00 PM", 720},
		{"1:15 PM", 795},
		{"11:59:59 PM", 1439},
		{"17:30", 1050},
		{"17:30:45", 1050},
		{"0:00", 0},
		{"0830", 510},
		{"930", 570},
		{"2359", 1439},
		{"  9:00  ", 540},
	}
	for _, c := range cases {
		got, err := ToMinutes(c.input)
		require.NoError(t, err, "input %q", c.input)
		assert.Equal(t, c.want, got, "input %q", c.input)
	}
}

func TestToMinutes_InvalidFormats(t *testing.T) {
	for _, input := range []string{"", "abc", "25:00", "13:00 PM", "0:30 AM", "9:5", "12:60", "2400", "1:2:3:4", "99", "12345", "-1:00"} {
		_, err := ToMinutes(input)
		assert.ErrorIs(t, err, attendance.ErrInvalidTimeFormat, "input %q", input)
	}
}

func TestDurationMinutes(t *testing.T) {
	// Same-day shift
	assert.Equal(t, 540, DurationMinutes(480, 1020))
	// Overnight shift 22:00 -> 06:00
	assert.Equal(t, 480, DurationMinutes(1320, 360))
	// Zero-length
	assert.Equal(t, 0, DurationMinutes(600, 600))
}

func TestDuration_RoundsAtBoundary(t *testing.T) {
	// 8:00 -> 17:20 is 9h20m
	assert.True(t, decimal.RequireFromString("9.33").Equal(Duration(480, 1040)))
	// 22:00 -> 06:30 wraps
	assert.True(t, decimal.RequireFromString("8.5").Equal(Duration(1320, 390)))
}

func TestTardiness(t *testing.T) {
	assert.Equal(t, 15, Tardiness(480, 495))
	assert.Equal(t, 0, Tardiness(480, 470))
	assert.Equal(t, 0, Tardiness(480, 480))
}

func TestOvertime(t *testing.T) {
	assert.Equal(t, 90, Overtime(1020, 1110))
	assert.Equal(t, 0, Overtime(1020, 1000))
}
