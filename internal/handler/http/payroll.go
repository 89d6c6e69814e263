package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PayrollHandler interface {
	// Batches
	GenerateBatch(w http.ResponseWriter, r *http.Request)
	ListBatches(w http.ResponseWriter, r *http.Request)
	GetBatch(w http.ResponseWriter, r *http.Request)
	UpdateCutoff(w http.ResponseWriter, r *http.Request)
	ApproveBatch(w http.ResponseWriter, r *http.Request)
	RejectBatch(w http.ResponseWriter, r *http.Request)
	ReleaseBatch(w http.ResponseWriter, r *http.Request)
	GetReleaseInfo(w http.ResponseWriter, r *http.Request)

	// Rates
	UpsertRate(w http.ResponseWriter, r *http.Request)
	ListRates(w http.ResponseWriter, r *http.Request)

	// Change requests
	CreateChangeRequest(w http.ResponseWriter, r *http.Request)
	ListChangeRequests(w http.ResponseWriter, r *http.Request)
	ApproveChange(w http.ResponseWriter, r *http.Request)
	RejectChange(w http.ResponseWriter, r *http.Request)

	// Contributions
	ContributionReport(w http.ResponseWriter, r *http.Request)
	ExportContributions(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== BATCHES ==========

func (h *payrollHandlerImpl) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req payroll.GenerateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.GenerateBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll batch generated", result)
}

func (h *payrollHandlerImpl) ListBatches(w http.ResponseWriter, r *http.Request) {
	var filter payroll.BatchFilter
	query := r.URL.Query()

	if raw := query.Get("payroll_type"); raw != "" {
		payrollType := payroll.PayrollType(raw)
		if !payrollType.Valid() {
			response.BadRequest(w, "Invalid payroll_type", map[string]string{"payroll_type": "must be 'weekly' or 'semi_monthly'"})
			return
		}
		filter.PayrollType = &payrollType
	}
	if raw := query.Get("released"); raw != "" {
		released, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid released filter", map[string]string{"released": "must be true or false"})
			return
		}
		filter.Released = &released
	}

	result, err := h.payrollService.ListBatches(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.GetBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdateCutoff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	var req payroll.UpdateCutoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.UpdateCutoff(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.ApproveBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

func (h *payrollHandlerImpl) RejectBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.RejectBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

func (h *payrollHandlerImpl) ReleaseBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.ReleaseBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch released", result)
}

func (h *payrollHandlerImpl) GetReleaseInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.GetReleaseInfo(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== RATES ==========

func (h *payrollHandlerImpl) UpsertRate(w http.ResponseWriter, r *http.Request) {
	employeeCode := chi.URLParam(r, "employeeCode")
	if employeeCode == "" {
		response.BadRequest(w, "Employee code is required", nil)
		return
	}

	var req payroll.UpsertRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.UpsertRate(r.Context(), employeeCode, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListRates(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListRates(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CHANGE REQUESTS ==========

func (h *payrollHandlerImpl) CreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateChangeRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateChangeRequest(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Change request submitted", result)
}

func (h *payrollHandlerImpl) ListChangeRequests(w http.ResponseWriter, r *http.Request) {
	var filter payroll.ChangeRequestFilter
	query := r.URL.Query()

	if batchID := query.Get("batch_id"); batchID != "" {
		filter.PayrollBatchID = &batchID
	}
	if raw := query.Get("status"); raw != "" {
		status := payroll.ChangeRequestStatus(raw)
		switch status {
		case payroll.ChangeRequestPending, payroll.ChangeRequestApproved, payroll.ChangeRequestRejected:
			filter.Status = &status
		default:
			response.BadRequest(w, "Invalid status filter", map[string]string{"status": "must be pending, approved or rejected"})
			return
		}
	}

	result, err := h.payrollService.ListChangeRequests(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ApproveChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Change request ID is required", nil)
		return
	}

	result, err := h.payrollService.ApproveChange(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

func (h *payrollHandlerImpl) RejectChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Change request ID is required", nil)
		return
	}

	result, err := h.payrollService.RejectChange(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// ========== CONTRIBUTIONS ==========

// ContributionReport reports one batch, or every configured rate when batch_id is omitted.
func (h *payrollHandlerImpl) ContributionReport(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")

	result, err := h.payrollService.ContributionReport(r.Context(), batchID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ExportContributions(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")

	body, err := h.payrollService.ExportContributions(r.Context(), batchID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	filename := "contributions-all.xlsx"
	if batchID != "" {
		filename = fmt.Sprintf("contributions-%s.xlsx", batchID)
	}
	response.Attachment(w, xlsxContentType, filename, body)
}
