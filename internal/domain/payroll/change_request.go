package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeRequestStatus enum
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestRejected ChangeRequestStatus = "rejected"
)

// ChangeRequest proposes new figures for one employee's payslip. Requests
// filed together for several employees share a GroupID.
type ChangeRequest struct {
	ID             string
	PayrollBatchID string
	GroupID        *string
	EmployeeCode   string
	Changes        map[string]decimal.Decimal // {"allowance": 1500}
	Reasons        string
	Status         ChangeRequestStatus
	RequestedBy    string
	DecidedBy      *string
	DecidedAt      *time.Time
	CreatedAt      time.Time
}

// ChangeGroup is either an IndividualChange or a BatchedChange.
type ChangeGroup interface {
	// Members returns every request in the group
	Members() []ChangeRequest
	isChangeGroup()
}

type IndividualChange struct {
	Request ChangeRequest
}

func (c IndividualChange) Members() []ChangeRequest { return []ChangeRequest{c.Request} }
func (IndividualChange) isChangeGroup()             {}

type BatchedChange struct {
	GroupID  string
	Requests []ChangeRequest
}

func (c BatchedChange) Members() []ChangeRequest { return c.Requests }
func (BatchedChange) isChangeGroup()             {}

func (c BatchedChange) EmployeeCodes() []string {
	codes := make([]string, len(c.Requests))
	for i, r := range c.Requests {
		codes[i] = r.EmployeeCode
	}
	return codes
}

// GroupChangeRequests resolves requests into groups once, keeping the order
// in which each group first appears.
func GroupChangeRequests(requests []ChangeRequest) []ChangeGroup {
	groups := make([]ChangeGroup, 0, len(requests))
	batched := make(map[string]int)

	for _, r := range requests {
		if r.GroupID == nil {
			groups = append(groups, IndividualChange{Request: r})
			continue
		}
		if idx, ok := batched[*r.GroupID]; ok {
			g := groups[idx].(BatchedChange)
			g.Requests = append(g.Requests, r)
			groups[idx] = g
			continue
		}
		batched[*r.GroupID] = len(groups)
		groups = append(groups, BatchedChange{GroupID: *r.GroupID, Requests: []ChangeRequest{r}})
	}
	return groups
}
