package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

type PayrollServiceImpl struct {
	payrollRepo    payroll.PayrollRepository
	rateRepo       payroll.RateRepository
	changeRepo     payroll.ChangeRequestRepository
	attendanceRepo attendance.AttendanceRepository

	builder       *BatchBuilder
	lifecycle     *Lifecycle
	scheduler     *ReleaseScheduler
	contributions *ContributionCalculator
	now           func() time.Time
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	rateRepo payroll.RateRepository,
	changeRepo payroll.ChangeRequestRepository,
	attendanceRepo attendance.AttendanceRepository,
	contributions *ContributionCalculator,
	scheduler *ReleaseScheduler,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		payrollRepo:    payrollRepo,
		rateRepo:       rateRepo,
		changeRepo:     changeRepo,
		attendanceRepo: attendanceRepo,
		builder:        NewBatchBuilder(contributions),
		lifecycle:      NewLifecycle(payrollRepo, changeRepo),
		scheduler:      scheduler,
		contributions:  contributions,
		now:            time.Now,
	}
}

// Helper to get the acting user from JWT context
func getActorFromContext(ctx context.Context) (user.Actor, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Actor{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return user.Actor{}, fmt.Errorf("user_id claim is missing or invalid")
	}
	roleClaim, _ := claims["role"].(string)
	role, ok := user.ParseRole(roleClaim)
	if !ok {
		return user.Actor{}, fmt.Errorf("role claim is missing or invalid")
	}

	return user.Actor{UserID: userID, Role: role}, nil
}

// ========== BATCHES ==========

func (s *PayrollServiceImpl) GenerateBatch(ctx context.Context, req payroll.GenerateBatchRequest) (payroll.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResponse{}, err
	}

	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	if _, err := s.attendanceRepo.GetUpload(ctx, req.UploadID); err != nil {
		return payroll.BatchResponse{}, err
	}
	summaries, err := s.attendanceRepo.ListSummariesByUpload(ctx, req.UploadID)
	if err != nil {
		return payroll.BatchResponse{}, fmt.Errorf("failed to get attendance summaries: %w", err)
	}

	rates := make(map[string]payroll.RateConfig, len(summaries))
	for _, summary := range summaries {
		rate, err := s.rateRepo.GetByEmployee(ctx, summary.EmployeeCode)
		if err != nil {
			if errors.Is(err, payroll.ErrRateConfigNotFound) {
				continue // Skipped and reported by the builder
			}
			return payroll.BatchResponse{}, fmt.Errorf("failed to get rate for %s: %w", summary.EmployeeCode, err)
		}
		rates[summary.EmployeeCode] = rate
	}

	// Legacy labels are parsed once here; a label that cannot be read is kept
	// for display and the batch waits for a corrected cutoff before auto-release.
	cutoff := req.Cutoff
	if cutoff == nil && strings.TrimSpace(req.CutoffLabel) != "" {
		parsed, err := payroll.ParseCutoffLabel(req.CutoffLabel)
		if err != nil {
			slog.Warn("Cutoff label could not be parsed", "cutoff_date", req.CutoffLabel, "error", err)
		}
		cutoff = parsed
	}
	// A semi-monthly batch without any cutoff covers the current half-month
	if cutoff == nil && strings.TrimSpace(req.CutoffLabel) == "" && payroll.PayrollType(req.PayrollType) == payroll.PayrollTypeSemiMonthly {
		current := payroll.SemiMonthlyCutoff(s.now().In(s.scheduler.Location()))
		cutoff = &current
	}

	uploadID := req.UploadID
	batch, skipped, err := s.builder.Generate(GenerateInput{
		Cutoff:      cutoff,
		CutoffLabel: strings.TrimSpace(req.CutoffLabel),
		PayrollType: payroll.PayrollType(req.PayrollType),
		RequestedBy: actor.UserID,
		UploadID:    &uploadID,
		Summaries:   summaries,
		Rates:       rates,
	})
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	if err := s.payrollRepo.CreateBatch(ctx, *batch); err != nil {
		return payroll.BatchResponse{}, fmt.Errorf("failed to create payroll batch: %w", err)
	}

	slog.Info("Payroll batch generated",
		"batch_id", batch.ID,
		"cutoff_date", batch.CutoffLabel,
		"payroll_type", batch.PayrollType,
		"payslips", len(batch.Payslips),
		"skipped", len(skipped),
	)
	resp := s.mapToBatchResponse(batch, true)
	resp.SkippedEmployees = skipped
	return resp, nil
}

func (s *PayrollServiceImpl) ListBatches(ctx context.Context, filter payroll.BatchFilter) ([]payroll.BatchResponse, error) {
	batches, err := s.payrollRepo.ListBatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll batches: %w", err)
	}

	responses := make([]payroll.BatchResponse, 0, len(batches))
	for i := range batches {
		responses = append(responses, s.mapToBatchResponse(&batches[i], false))
	}
	return responses, nil
}

func (s *PayrollServiceImpl) GetBatch(ctx context.Context, id string) (payroll.BatchResponse, error) {
	batch, err := s.payrollRepo.GetBatch(ctx, id)
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	return s.mapToBatchResponse(&batch, true), nil
}

// UpdateCutoff corrects the cutoff of a batch whose label could not be parsed
// or was entered wrongly. Released batches cannot be changed. The change takes
// the batch's release claim, so it is refused while a release is in flight.
func (s *PayrollServiceImpl) UpdateCutoff(ctx context.Context, id string, req payroll.UpdateCutoffRequest) (payroll.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResponse{}, err
	}
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	acquired, err := s.scheduler.withBatchLock(ctx, id, func() error {
		batch, err := s.payrollRepo.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if batch.Released {
			return payroll.ErrBatchAlreadyReleased
		}
		if err := s.payrollRepo.UpdateCutoff(ctx, id, req.Cutoff); err != nil {
			return fmt.Errorf("failed to update cutoff: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	if !acquired {
		return payroll.BatchResponse{}, payroll.ErrReleaseInProgress
	}
	slog.Info("Payroll batch cutoff corrected", "batch_id", id, "cutoff_date", req.Cutoff.String(), "by", actor.UserID)

	return s.GetBatch(ctx, id)
}

func (s *PayrollServiceImpl) ApproveBatch(ctx context.Context, id string) (payroll.TransitionResponse, error) {
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	outcome, err := s.lifecycle.ApproveAll(ctx, actor, id)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	return payroll.ToTransitionResponse(outcome), nil
}

func (s *PayrollServiceImpl) RejectBatch(ctx context.Context, id string) (payroll.TransitionResponse, error) {
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	outcome, err := s.lifecycle.RejectAll(ctx, actor, id)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	return payroll.ToTransitionResponse(outcome), nil
}

func (s *PayrollServiceImpl) ReleaseBatch(ctx context.Context, id string) (payroll.BatchResponse, error) {
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	if err := s.scheduler.ReleaseNow(ctx, actor, id, s.now().UTC()); err != nil {
		return payroll.BatchResponse{}, err
	}
	return s.GetBatch(ctx, id)
}

func (s *PayrollServiceImpl) GetReleaseInfo(ctx context.Context, id string) (payroll.ReleaseInfoResponse, error) {
	batch, err := s.payrollRepo.GetBatch(ctx, id)
	if err != nil {
		return payroll.ReleaseInfoResponse{}, err
	}

	info := payroll.ReleaseInfoResponse{
		BatchID:     batch.ID,
		PayrollType: batch.PayrollType,
		Status:      batch.Status(),
		Released:    batch.Released,
	}
	instant, warning := s.releaseInstant(&batch)
	info.ReleaseDate = instant
	info.Warning = warning
	if instant != nil && !batch.Released && info.Status == payroll.BatchStatusApproved {
		info.Due = !instant.After(s.now())
	}
	return info, nil
}

// ========== RATES ==========

func (s *PayrollServiceImpl) UpsertRate(ctx context.Context, employeeCode string, req payroll.UpsertRateRequest) (payroll.RateResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RateResponse{}, err
	}
	employeeCode = strings.TrimSpace(employeeCode)
	if employeeCode == "" {
		return payroll.RateResponse{}, validator.ValidationErrors{{Field: "employee_code", Message: "employee_code is required"}}
	}

	rate := req.ToRateConfig(employeeCode)
	rate.UpdatedAt = s.now().UTC()
	saved, err := s.rateRepo.Upsert(ctx, rate)
	if err != nil {
		return payroll.RateResponse{}, fmt.Errorf("failed to save rate: %w", err)
	}
	return payroll.ToRateResponse(saved), nil
}

func (s *PayrollServiceImpl) ListRates(ctx context.Context) ([]payroll.RateResponse, error) {
	rates, err := s.rateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	responses := make([]payroll.RateResponse, 0, len(rates))
	for _, r := range rates {
		responses = append(responses, payroll.ToRateResponse(r))
	}
	return responses, nil
}

// ========== CHANGE REQUESTS ==========

func (s *PayrollServiceImpl) CreateChangeRequest(ctx context.Context, req payroll.CreateChangeRequestRequest) (payroll.ChangeGroupResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ChangeGroupResponse{}, err
	}
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.ChangeGroupResponse{}, err
	}

	batch, err := s.payrollRepo.GetBatch(ctx, req.PayrollBatchID)
	if err != nil {
		return payroll.ChangeGroupResponse{}, err
	}
	members := make(map[string]bool, len(batch.Payslips))
	for _, p := range batch.Payslips {
		members[p.EmployeeCode] = true
	}
	for _, code := range req.EmployeeCodes {
		if !members[code] {
			return payroll.ChangeGroupResponse{}, fmt.Errorf("%w: %s is not in batch %s", payroll.ErrPayslipNotFound, code, batch.ID)
		}
	}

	// Requests filed for several employees at once share a group id
	var groupID *string
	if len(req.EmployeeCodes) > 1 {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.ChangeGroupResponse{}, fmt.Errorf("failed to generate group id: %w", err)
		}
		gid := id.String()
		groupID = &gid
	}

	now := s.now().UTC()
	requests := make([]payroll.ChangeRequest, 0, len(req.EmployeeCodes))
	for _, code := range req.EmployeeCodes {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.ChangeGroupResponse{}, fmt.Errorf("failed to generate change request id: %w", err)
		}
		requests = append(requests, payroll.ChangeRequest{
			ID:             id.String(),
			PayrollBatchID: batch.ID,
			GroupID:        groupID,
			EmployeeCode:   code,
			Changes:        req.Changes,
			Reasons:        strings.TrimSpace(req.Reasons),
			Status:         payroll.ChangeRequestPending,
			RequestedBy:    actor.UserID,
			CreatedAt:      now,
		})
	}

	if err := s.changeRepo.Create(ctx, requests); err != nil {
		return payroll.ChangeGroupResponse{}, fmt.Errorf("failed to create change requests: %w", err)
	}

	groups := payroll.GroupChangeRequests(requests)
	return payroll.ToChangeGroupResponse(groups[0]), nil
}

func (s *PayrollServiceImpl) ListChangeRequests(ctx context.Context, filter payroll.ChangeRequestFilter) ([]payroll.ChangeGroupResponse, error) {
	requests, err := s.changeRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}

	groups := payroll.GroupChangeRequests(requests)
	responses := make([]payroll.ChangeGroupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, payroll.ToChangeGroupResponse(g))
	}
	return responses, nil
}

func (s *PayrollServiceImpl) ApproveChange(ctx context.Context, id string) (payroll.TransitionResponse, error) {
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	outcome, err := s.lifecycle.ApproveChange(ctx, actor, id)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	return payroll.ToTransitionResponse(outcome), nil
}

func (s *PayrollServiceImpl) RejectChange(ctx context.Context, id string) (payroll.TransitionResponse, error) {
	actor, err := getActorFromContext(ctx)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	outcome, err := s.lifecycle.RejectChange(ctx, actor, id)
	if err != nil {
		return payroll.TransitionResponse{}, err
	}
	return payroll.ToTransitionResponse(outcome), nil
}

// ========== CONTRIBUTIONS ==========

func (s *PayrollServiceImpl) ContributionReport(ctx context.Context, batchID string) (payroll.ContributionReport, error) {
	_, inputs, err := s.contributionInputs(ctx, batchID)
	if err != nil {
		return payroll.ContributionReport{}, err
	}
	return s.contributions.Totals(inputs), nil
}

func (s *PayrollServiceImpl) ExportContributions(ctx context.Context, batchID string) ([]byte, error) {
	subject, inputs, err := s.contributionInputs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return WriteContributionsXLSX(subject, s.contributions.Totals(inputs))
}

// contributionInputs reads the per-employee scheme totals of a batch. Without
// a batch it falls back to every configured rate, which is what the next
// payroll would remit.
func (s *PayrollServiceImpl) contributionInputs(ctx context.Context, batchID string) (string, []payroll.ContributionInput, error) {
	if batchID == "" {
		rates, err := s.rateRepo.List(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("failed to list rates: %w", err)
		}
		inputs := make([]payroll.ContributionInput, 0, len(rates))
		for _, rate := range rates {
			inputs = append(inputs, ContributionInputFromRate(rate))
		}
		return "All employees", inputs, nil
	}

	batch, err := s.payrollRepo.GetBatch(ctx, batchID)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s (%s)", batch.CutoffLabel, batch.PayrollType), batch.ContributionInputs(), nil
}

// ========== HELPERS ==========

func (s *PayrollServiceImpl) releaseInstant(batch *payroll.Batch) (*time.Time, string) {
	instant, err := ComputeReleaseInstant(batch, s.scheduler.Location())
	if err != nil {
		return nil, "release date could not be computed from cutoff; correct the cutoff to enable automatic release"
	}
	return instant, ""
}

func (s *PayrollServiceImpl) mapToBatchResponse(batch *payroll.Batch, withPayslips bool) payroll.BatchResponse {
	resp := payroll.BatchResponse{
		ID:                  batch.ID,
		CutoffDate:          batch.CutoffLabel,
		Cutoff:              batch.Cutoff,
		PayrollType:         batch.PayrollType,
		RequestedBy:         batch.RequestedBy,
		CreatedAt:           batch.CreatedAt,
		Status:              batch.Status(),
		UniqueStatuses:      batch.UniqueStatuses(),
		PayslipCount:        len(batch.Payslips),
		TotalGrossPay:       batch.TotalGrossPay(),
		TotalNetPay:         batch.TotalNetPay(),
		Released:            batch.Released,
		ReleaseDispatchedAt: batch.ReleaseDispatchedAt,
	}
	resp.ReleaseDate, resp.ReleaseWarning = s.releaseInstant(batch)

	if withPayslips {
		payslips := make([]payroll.Payslip, len(batch.Payslips))
		copy(payslips, batch.Payslips)
		sort.Slice(payslips, func(i, j int) bool { return payslips[i].EmployeeCode < payslips[j].EmployeeCode })
		for _, p := range payslips {
			resp.Payslips = append(resp.Payslips, payroll.ToPayslipResponse(p))
		}
	}
	return resp
}
