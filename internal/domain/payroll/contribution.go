package payroll

import "github.com/shopspring/decimal"

// Scheme is a statutory contribution programme
type Scheme string

const (
	SchemeSSS        Scheme = "sss"
	SchemePhilHealth Scheme = "philhealth"
	SchemePagIBIG    Scheme = "pagibig"
)

var Schemes = []Scheme{SchemeSSS, SchemePhilHealth, SchemePagIBIG}

type ContributionShare struct {
	Total         decimal.Decimal `json:"total"`
	EmployeeShare decimal.Decimal `json:"employee_share"`
	EmployerShare decimal.Decimal `json:"employer_share"`
}

func (s ContributionShare) Add(o ContributionShare) ContributionShare {
	return ContributionShare{
		Total:         s.Total.Add(o.Total),
		EmployeeShare: s.EmployeeShare.Add(o.EmployeeShare),
		EmployerShare: s.EmployerShare.Add(o.EmployerShare),
	}
}

// ContributionInput carries the pre-computed total contribution per scheme for one employee.
type ContributionInput struct {
	EmployeeCode string
	Totals       map[Scheme]decimal.Decimal
}

type EmployeeContribution struct {
	EmployeeCode string                       `json:"employee_code"`
	Shares       map[Scheme]ContributionShare `json:"shares"`
	Total        ContributionShare            `json:"total"`
}

type ContributionReport struct {
	Employees  []EmployeeContribution       `json:"employees"`
	Schemes    map[Scheme]ContributionShare `json:"schemes"`
	GrandTotal ContributionShare            `json:"grand_total"`
}
