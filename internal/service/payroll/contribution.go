package payroll

import (
	"sort"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// DefaultEmployeeShareRatio splits contributions evenly between employee and employer.
var DefaultEmployeeShareRatio = decimal.RequireFromString("0.5")

// ContributionCalculator splits and aggregates pre-computed statutory contributions.
// The contribution tables themselves are inputs, not part of this calculator.
type ContributionCalculator struct {
	employeeRatio decimal.Decimal
}

func NewContributionCalculator(employeeRatio decimal.Decimal) *ContributionCalculator {
	if employeeRatio.IsNegative() || employeeRatio.GreaterThan(decimal.NewFromInt(1)) || employeeRatio.IsZero() {
		employeeRatio = DefaultEmployeeShareRatio
	}
	return &ContributionCalculator{employeeRatio: employeeRatio}
}

// Split divides total into shares. The employee share is rounded to cents and
// the employer takes the remainder, so the shares always sum to total.
func (c *ContributionCalculator) Split(total decimal.Decimal) payroll.ContributionShare {
	employee := total.Mul(c.employeeRatio).Round(2)
	return payroll.ContributionShare{
		Total:         total,
		EmployeeShare: employee,
		EmployerShare: total.Sub(employee),
	}
}

// Totals builds per-employee lines, per-scheme totals and a grand total.
func (c *ContributionCalculator) Totals(items []payroll.ContributionInput) payroll.ContributionReport {
	report := payroll.ContributionReport{
		Employees: make([]payroll.EmployeeContribution, 0, len(items)),
		Schemes:   make(map[payroll.Scheme]payroll.ContributionShare, len(payroll.Schemes)),
	}
	zero := payroll.ContributionShare{Total: decimal.Zero, EmployeeShare: decimal.Zero, EmployerShare: decimal.Zero}
	for _, scheme := range payroll.Schemes {
		report.Schemes[scheme] = zero
	}
	report.GrandTotal = zero

	for _, item := range items {
		line := payroll.EmployeeContribution{
			EmployeeCode: item.EmployeeCode,
			Shares:       make(map[payroll.Scheme]payroll.ContributionShare, len(payroll.Schemes)),
			Total:        zero,
		}
		for _, scheme := range payroll.Schemes {
			amount, ok := item.Totals[scheme]
			if !ok {
				amount = decimal.Zero
			}
			share := c.Split(amount)
			line.Shares[scheme] = share
			line.Total = line.Total.Add(share)
			report.Schemes[scheme] = report.Schemes[scheme].Add(share)
		}
		report.GrandTotal = report.GrandTotal.Add(line.Total)
		report.Employees = append(report.Employees, line)
	}

	sort.Slice(report.Employees, func(i, j int) bool {
		return report.Employees[i].EmployeeCode < report.Employees[j].EmployeeCode
	})
	return report
}

// ContributionInputFromRate reads the per-scheme totals configured on a rate.
func ContributionInputFromRate(rate payroll.RateConfig) payroll.ContributionInput {
	return payroll.ContributionInput{
		EmployeeCode: rate.EmployeeCode,
		Totals: map[payroll.Scheme]decimal.Decimal{
			payroll.SchemeSSS:        rate.SSSContribution,
			payroll.SchemePhilHealth: rate.PhilHealthContribution,
			payroll.SchemePagIBIG:    rate.PagIBIGContribution,
		},
	}
}
