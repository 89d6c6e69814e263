package payroll

import "errors"

var (
	ErrBatchNotFound         = errors.New("payroll batch not found")
	ErrPayslipNotFound       = errors.New("payslip not found")
	ErrChangeRequestNotFound = errors.New("change request not found")
	ErrRateConfigNotFound    = errors.New("rate configuration not found")
	ErrApproverRoleRequired  = errors.New("approver role required")
	ErrInvalidPayrollType    = errors.New("invalid payroll type")
	ErrInvalidCutoff         = errors.New("invalid cutoff period")
	ErrUnparseableCutoff     = errors.New("unparseable cutoff period")
	ErrEmptyBatch            = errors.New("no payslips could be generated")
	ErrBatchNotApproved      = errors.New("payroll batch is not approved")
	ErrBatchAlreadyReleased  = errors.New("payroll batch already released")
	ErrReleaseInProgress     = errors.New("payroll batch release already in progress")
	ErrReleaseDispatchFailed = errors.New("release dispatch failed")
)
