package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	Aggregate(w http.ResponseWriter, r *http.Request)
	CreateUpload(w http.ResponseWriter, r *http.Request)
	ProcessUpload(w http.ResponseWriter, r *http.Request)
	ListSummaries(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// Aggregate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req attendance.AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.Aggregate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateUpload implements AttendanceHandler.
func (h *attendanceHandlerImpl) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req attendance.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.UploadedBy = getUserIDFromContext(r)

	result, err := h.attendanceService.CreateUpload(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance upload stored", result)
}

// ProcessUpload implements AttendanceHandler.
func (h *attendanceHandlerImpl) ProcessUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Upload ID is required", nil)
		return
	}

	result, err := h.attendanceService.ProcessUpload(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance upload processed", result)
}

// ListSummaries implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListSummaries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Upload ID is required", nil)
		return
	}

	result, err := h.attendanceService.ListSummaries(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
