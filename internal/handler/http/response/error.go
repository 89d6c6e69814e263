package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrUploadNotFound):
		NotFound(w, "Attendance upload not found")
	case errors.Is(err, attendance.ErrMissingColumn),
		errors.Is(err, attendance.ErrMalformedRow),
		errors.Is(err, attendance.ErrInvalidTimeFormat):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrEmptyUpload):
		BadRequest(w, "Attendance upload has no rows", nil)

	// Holiday domain errors
	case errors.Is(err, holiday.ErrInvalidDate), errors.Is(err, holiday.ErrInvalidHolidayType):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, holiday.ErrHolidayExists):
		Conflict(w, "Holiday already exists for this date")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrBatchNotFound):
		NotFound(w, "Payroll batch not found")
	case errors.Is(err, payroll.ErrPayslipNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, payroll.ErrChangeRequestNotFound):
		NotFound(w, "Change request not found")
	case errors.Is(err, payroll.ErrRateConfigNotFound):
		NotFound(w, "Rate configuration not found")
	case errors.Is(err, payroll.ErrApproverRoleRequired):
		Forbidden(w, "Approver role required")
	case errors.Is(err, payroll.ErrInvalidPayrollType),
		errors.Is(err, payroll.ErrInvalidCutoff),
		errors.Is(err, payroll.ErrUnparseableCutoff):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrEmptyBatch):
		BadRequest(w, "No payslips could be generated: no employee has a rate configuration", nil)
	case errors.Is(err, payroll.ErrBatchNotApproved):
		Conflict(w, "Payroll batch is not approved")
	case errors.Is(err, payroll.ErrBatchAlreadyReleased):
		Conflict(w, "Payroll batch already released")
	case errors.Is(err, payroll.ErrReleaseInProgress):
		Conflict(w, "Payroll batch release already in progress")
	case errors.Is(err, payroll.ErrReleaseDispatchFailed):
		BadGateway(w, "Disbursement service did not accept the release")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
