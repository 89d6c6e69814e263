package payroll

import (
	"bytes"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/xuri/excelize/v2"
)

const contributionsSheet = "Contributions"

var schemeLabels = map[payroll.Scheme]string{
	payroll.SchemeSSS:        "SSS",
	payroll.SchemePhilHealth: "PhilHealth",
	payroll.SchemePagIBIG:    "Pag-IBIG",
}

// WriteContributionsXLSX renders the report as a workbook with one row per
// employee and a totals row. subject names the report in its title.
func WriteContributionsXLSX(subject string, report payroll.ContributionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", contributionsSheet); err != nil {
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}

	title := "Contributions - " + subject
	if err := f.SetCellValue(contributionsSheet, "A1", title); err != nil {
		return nil, fmt.Errorf("error writing title: %w", err)
	}

	headers := []string{"Employee Code"}
	for _, scheme := range payroll.Schemes {
		label := schemeLabels[scheme]
		headers = append(headers, label+" EE", label+" ER", label+" Total")
	}
	headers = append(headers, "Total EE", "Total ER", "Grand Total")
	if err := writeRow(f, 3, toCells(headers)); err != nil {
		return nil, err
	}

	row := 4
	for _, line := range report.Employees {
		cells := []any{line.EmployeeCode}
		for _, scheme := range payroll.Schemes {
			cells = append(cells, shareCells(line.Shares[scheme])...)
		}
		cells = append(cells, shareCells(line.Total)...)
		if err := writeRow(f, row, cells); err != nil {
			return nil, err
		}
		row++
	}

	totals := []any{"TOTAL"}
	for _, scheme := range payroll.Schemes {
		totals = append(totals, shareCells(report.Schemes[scheme])...)
	}
	totals = append(totals, shareCells(report.GrandTotal)...)
	if err := writeRow(f, row, totals); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("error creating style: %w", err)
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(headers), 3)
	totalsStart, _ := excelize.CoordinatesToCellName(1, row)
	totalsEnd, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := f.SetCellStyle(contributionsSheet, "A3", headerEnd, bold); err != nil {
		return nil, fmt.Errorf("error styling header: %w", err)
	}
	if err := f.SetCellStyle(contributionsSheet, totalsStart, totalsEnd, bold); err != nil {
		return nil, fmt.Errorf("error styling totals: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, cells []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(contributionsSheet, start, &cells); err != nil {
		return fmt.Errorf("error writing row %d: %w", row, err)
	}
	return nil
}

func shareCells(s payroll.ContributionShare) []any {
	return []any{
		s.EmployeeShare.InexactFloat64(),
		s.EmployerShare.InexactFloat64(),
		s.Total.InexactFloat64(),
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
