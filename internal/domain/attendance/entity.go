package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/shopspring/decimal"
)

// Row is one already-parsed time-clock line. A nil or blank actual time
// marks the employee absent for that date.
type Row struct {
	EmployeeCode string
	Date         string
	ScheduledIn  string
	ScheduledOut string
	ActualIn     *string
	ActualOut    *string
}

func (r Row) Present() bool {
	return !blank(r.ActualIn) && !blank(r.ActualOut)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Record is the derived attendance of one employee on one date.
// RegularMinutes and HolidayMinutes are mutually exclusive and always sum to WorkedMinutes.
type Record struct {
	EmployeeCode     string
	Date             string // YYYY-MM-DD
	IsHoliday        bool
	HolidayType      holiday.Type
	Present          bool
	TardinessMinutes int
	WorkedMinutes    int
	OvertimeMinutes  int
	RegularMinutes   int
	HolidayMinutes   int
}

func (r Record) TotalHours() decimal.Decimal    { return Hours(r.WorkedMinutes) }
func (r Record) RegularHours() decimal.Decimal  { return Hours(r.RegularMinutes) }
func (r Record) HolidayHours() decimal.Decimal  { return Hours(r.HolidayMinutes) }
func (r Record) OvertimeHours() decimal.Decimal { return Hours(r.OvertimeMinutes) }

// Summary rolls up the records of one employee for one aggregation run.
// Day counts are cardinalities of distinct dates.
type Summary struct {
	ID               string
	UploadID         string
	EmployeeCode     string
	DaysPresent      int
	RegularDays      int
	HolidayDays      int
	RegularMinutes   int
	HolidayMinutes   int
	TardinessMinutes int
	OvertimeMinutes  int
	CreatedAt        time.Time
}

func (s Summary) TotalMinutes() int              { return s.RegularMinutes + s.HolidayMinutes }
func (s Summary) TotalHours() decimal.Decimal    { return Hours(s.TotalMinutes()) }
func (s Summary) RegularHours() decimal.Decimal  { return Hours(s.RegularMinutes) }
func (s Summary) HolidayHours() decimal.Decimal  { return Hours(s.HolidayMinutes) }
func (s Summary) OvertimeHours() decimal.Decimal { return Hours(s.OvertimeMinutes) }

// Upload is a stored set of parsed rows awaiting aggregation.
type Upload struct {
	ID          string
	Label       string
	UploadedBy  string
	RowCount    int
	Rows        []Row
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Issue records a data-quality problem found while aggregating. The run continues.
type Issue struct {
	RowIndex     int
	EmployeeCode string
	Field        string
	Err          error
}

var sixty = decimal.NewFromInt(60)

// Hours converts whole minutes to hours rounded to two places.
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}
