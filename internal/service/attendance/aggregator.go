package attendance

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	holidaySvc "github.com/cmlabs-hris/payroll-backend-go/internal/service/holiday"
)

// HolidayClassifier decides the holiday type of a date.
type HolidayClassifier interface {
	Classify(date string) holiday.Type
}

type AggregationResult struct {
	Records   []attendance.Record
	Summaries []attendance.Summary
	Issues    []attendance.Issue
}

// Process turns raw rows into per-date records and per-employee summaries.
// Bad clock values count as zero and bad dates drop the row; both are
// reported as issues instead of failing the run. Output is sorted so that
// any permutation of the same rows yields the same result.
func Process(rows []attendance.Row, classifier HolidayClassifier) AggregationResult {
	var result AggregationResult

	for i, row := range rows {
		record, issues, err := buildRecord(i, row, classifier)
		result.Issues = append(result.Issues, issues...)
		if err != nil {
			result.Issues = append(result.Issues, attendance.Issue{RowIndex: i, EmployeeCode: row.EmployeeCode, Field: "date", Err: err})
			continue
		}
		result.Records = append(result.Records, record)
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		return recordLess(result.Records[i], result.Records[j])
	})
	result.Summaries = Summarize(result.Records)
	return result
}

func buildRecord(index int, row attendance.Row, classifier HolidayClassifier) (attendance.Record, []attendance.Issue, error) {
	date, err := holidaySvc.NormalizeDate(row.Date)
	if err != nil {
		return attendance.Record{}, nil, fmt.Errorf("%w: %w", attendance.ErrMalformedRow, err)
	}

	var issues []attendance.Issue
	clock := func(field, value string) int {
		m, err := ToMinutes(value)
		if err != nil {
			issues = append(issues, attendance.Issue{RowIndex: index, EmployeeCode: row.EmployeeCode, Field: field, Err: err})
			return 0
		}
		return m
	}

	htype := classifier.Classify(date)
	record := attendance.Record{
		EmployeeCode: row.EmployeeCode,
		Date:         date,
		IsHoliday:    htype != holiday.TypeNone,
		HolidayType:  htype,
		Present:      row.Present(),
	}
	if !record.Present {
		return record, issues, nil
	}

	scheduledIn := clock("scheduled_in", row.ScheduledIn)
	scheduledOut := clock("scheduled_out", row.ScheduledOut)
	actualIn := clock("actual_in", *row.ActualIn)
	actualOut := clock("actual_out", *row.ActualOut)

	if !record.IsHoliday {
		record.TardinessMinutes = Tardiness(scheduledIn, actualIn)
	}
	record.WorkedMinutes = DurationMinutes(actualIn, actualOut)
	record.OvertimeMinutes = Overtime(scheduledOut, actualOut)
	if record.IsHoliday {
		record.HolidayMinutes = record.WorkedMinutes
	} else {
		record.RegularMinutes = record.WorkedMinutes
	}

	return record, issues, nil
}

// Summarize reduces records into one summary per employee, sorted by employee code.
func Summarize(records []attendance.Record) []attendance.Summary {
	type acc struct {
		summary      attendance.Summary
		presentDates map[string]bool
		regularDates map[string]bool
		holidayDates map[string]bool
	}
	byEmployee := make(map[string]*acc)

	for _, r := range records {
		a, ok := byEmployee[r.EmployeeCode]
		if !ok {
			a = &acc{
				summary:      attendance.Summary{EmployeeCode: r.EmployeeCode},
				presentDates: make(map[string]bool),
				regularDates: make(map[string]bool),
				holidayDates: make(map[string]bool),
			}
			byEmployee[r.EmployeeCode] = a
		}

		a.summary.RegularMinutes += r.RegularMinutes
		a.summary.HolidayMinutes += r.HolidayMinutes
		a.summary.TardinessMinutes += r.TardinessMinutes
		a.summary.OvertimeMinutes += r.OvertimeMinutes

		if r.Present {
			a.presentDates[r.Date] = true
			if r.IsHoliday {
				a.holidayDates[r.Date] = true
			} else {
				a.regularDates[r.Date] = true
			}
		}
	}

	summaries := make([]attendance.Summary, 0, len(byEmployee))
	for _, a := range byEmployee {
		a.summary.DaysPresent = len(a.presentDates)
		a.summary.RegularDays = len(a.regularDates)
		a.summary.HolidayDays = len(a.holidayDates)
		summaries = append(summaries, a.summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].EmployeeCode < summaries[j].EmployeeCode })
	return summaries
}

func recordLess(a, b attendance.Record) bool {
	if a.EmployeeCode != b.EmployeeCode {
		return a.EmployeeCode < b.EmployeeCode
	}
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.WorkedMinutes != b.WorkedMinutes {
		return a.WorkedMinutes < b.WorkedMinutes
	}
	if a.TardinessMinutes != b.TardinessMinutes {
		return a.TardinessMinutes < b.TardinessMinutes
	}
	if a.OvertimeMinutes != b.OvertimeMinutes {
		return a.OvertimeMinutes < b.OvertimeMinutes
	}
	return !a.Present && b.Present
}
