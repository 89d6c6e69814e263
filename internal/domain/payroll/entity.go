package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PayrollType enum
type PayrollType string

const (
	PayrollTypeWeekly      PayrollType = "weekly"
	PayrollTypeSemiMonthly PayrollType = "semi_monthly"
)

func (t PayrollType) Valid() bool {
	return t == PayrollTypeWeekly || t == PayrollTypeSemiMonthly
}

// PayslipStatus enum. Rejected stays part of the stored vocabulary, but
// RejectAll deletes the batch, so no stored payslip carries it today. Rejected
// batches are not kept for audit (DESIGN.md, open question 3).
type PayslipStatus string

const (
	PayslipStatusPending  PayslipStatus = "pending"
	PayslipStatusApproved PayslipStatus = "approved"
	PayslipStatusRejected PayslipStatus = "rejected"
)

// BatchStatus is derived from member payslips, never stored. Rejected and
// mixed follow from PayslipStatusRejected and are unreachable while
// rejection deletes the batch.
type BatchStatus string

const (
	BatchStatusPending  BatchStatus = "pending"
	BatchStatusApproved BatchStatus = "approved"
	BatchStatusRejected BatchStatus = "rejected"
	BatchStatusMixed    BatchStatus = "mixed" // no pending members, but approved and rejected both present
)

type Earnings struct {
	Basic             decimal.Decimal
	Overtime          decimal.Decimal
	Holiday           decimal.Decimal
	NightDifferential decimal.Decimal
	Allowance         decimal.Decimal
}

func (e Earnings) Total() decimal.Decimal {
	return e.Basic.Add(e.Overtime).Add(e.Holiday).Add(e.NightDifferential).Add(e.Allowance)
}

type Deductions struct {
	Tax        decimal.Decimal
	SSS        decimal.Decimal
	PhilHealth decimal.Decimal
	PagIBIG    decimal.Decimal
	Loan       decimal.Decimal
	Other      decimal.Decimal
}

func (d Deductions) Total() decimal.Decimal {
	return d.Tax.Add(d.SSS).Add(d.PhilHealth).Add(d.PagIBIG).Add(d.Loan).Add(d.Other)
}

// Payslip - one employee's pay for one cutoff. Status is the only field changed after creation.
type Payslip struct {
	ID               string
	BatchID          string
	EmployeeCode     string
	DaysPresent      int
	RegularHours     decimal.Decimal
	HolidayHours     decimal.Decimal
	OvertimeHours    decimal.Decimal
	TardinessMinutes int
	Earnings         Earnings
	Deductions       Deductions
	Contributions    map[Scheme]ContributionShare // {"sss": {total, employee_share, employer_share}}
	GrossPay         decimal.Decimal
	NetPay           decimal.Decimal
	Status           PayslipStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Batch - payslips generated together and released together
type Batch struct {
	ID          string
	Cutoff      *CutoffPeriod
	CutoffLabel string // display label; kept verbatim when it could not be parsed
	PayrollType PayrollType
	RequestedBy string
	UploadID    *string
	CreatedAt   time.Time

	Released            bool
	ReleaseDispatchedAt *time.Time

	Payslips []Payslip
}

// Status derives the batch status from its members.
func (b *Batch) Status() BatchStatus {
	var approved, rejected int
	for _, p := range b.Payslips {
		switch p.Status {
		case PayslipStatusPending:
			return BatchStatusPending
		case PayslipStatusApproved:
			approved++
		case PayslipStatusRejected:
			rejected++
		}
	}
	switch {
	case len(b.Payslips) == 0:
		return BatchStatusPending
	case approved == len(b.Payslips):
		return BatchStatusApproved
	case rejected == len(b.Payslips):
		return BatchStatusRejected
	}
	return BatchStatusMixed
}

func (b *Batch) IsApproved() bool {
	return b.Status() == BatchStatusApproved
}

// UniqueStatuses returns the distinct member statuses in a stable order.
func (b *Batch) UniqueStatuses() []PayslipStatus {
	seen := make(map[PayslipStatus]bool)
	statuses := make([]PayslipStatus, 0, 3)
	for _, p := range b.Payslips {
		if !seen[p.Status] {
			seen[p.Status] = true
			statuses = append(statuses, p.Status)
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}

func (b *Batch) TotalNetPay() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Payslips {
		total = total.Add(p.NetPay)
	}
	return total
}

func (b *Batch) TotalGrossPay() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Payslips {
		total = total.Add(p.GrossPay)
	}
	return total
}

// ContributionInputs returns the full per-scheme contribution of every member.
func (b *Batch) ContributionInputs() []ContributionInput {
	inputs := make([]ContributionInput, 0, len(b.Payslips))
	for _, p := range b.Payslips {
		totals := make(map[Scheme]decimal.Decimal, len(p.Contributions))
		for scheme, share := range p.Contributions {
			totals[scheme] = share.Total
		}
		inputs = append(inputs, ContributionInput{EmployeeCode: p.EmployeeCode, Totals: totals})
	}
	return inputs
}

func (b *Batch) PayslipIDs() []string {
	ids := make([]string, len(b.Payslips))
	for i, p := range b.Payslips {
		ids[i] = p.ID
	}
	return ids
}

// RateConfig - per-employee rates. Contribution fields hold the full
// (employee + employer) amount; the split happens at payslip generation.
type RateConfig struct {
	EmployeeCode           string
	DailyRate              decimal.Decimal
	HoursPerDay            decimal.Decimal
	OvertimeMultiplier     decimal.Decimal
	HolidayMultiplier      decimal.Decimal
	NightDifferential      decimal.Decimal
	Allowance              decimal.Decimal
	Tax                    decimal.Decimal
	SSSContribution        decimal.Decimal
	PhilHealthContribution decimal.Decimal
	PagIBIGContribution    decimal.Decimal
	Loan                   decimal.Decimal
	OtherDeduction         decimal.Decimal
	LateDeductionPerMinute decimal.Decimal
	UpdatedAt              time.Time
}

// HourlyRate returns DailyRate / HoursPerDay, zero when hours per day is unset.
func (r RateConfig) HourlyRate() decimal.Decimal {
	if r.HoursPerDay.IsZero() {
		return decimal.Zero
	}
	return r.DailyRate.Div(r.HoursPerDay)
}

// ReleaseOrder is handed to the disbursement collaborator when a batch is released.
type ReleaseOrder struct {
	BatchID     string      `json:"batch_id"`
	PayslipIDs  []string    `json:"payslip_ids"`
	ReleaseAt   time.Time   `json:"release_at"`
	PayrollType PayrollType `json:"payroll_type"`
}

// TransitionOutcome reports what a lifecycle operation did. A no-op is not an error.
type TransitionOutcome struct {
	Changed  bool
	Affected int
	Reason   string
}

func Changed(affected int) TransitionOutcome {
	return TransitionOutcome{Changed: true, Affected: affected}
}

func NoOp(reason string) TransitionOutcome {
	return TransitionOutcome{Reason: reason}
}
