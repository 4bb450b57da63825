package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	GenerateRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	DeleteRun(w http.ResponseWriter, r *http.Request)

	// Workflow
	ConfirmRun(w http.ResponseWriter, r *http.Request)
	MarkRunPaid(w http.ResponseWriter, r *http.Request)
	RegenerateRun(w http.ResponseWriter, r *http.Request)

	// Exports
	DownloadBankFile(w http.ResponseWriter, r *http.Request)
	ListAudit(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// runID reads the {id} URL parameter, writing a 422 when it is malformed.
func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.ValidationError(w, map[string]string{"id": "must be a valid UUID"})
		return "", false
	}
	return id, true
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) GenerateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.GenerateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	run, err := h.payrollService.Generate(r.Context(), req.Month, req.Year, middleware.ActorID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run generated", payroll.NewPayrollRunResponse(run))
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs validator.ValidationErrors
	filter := payroll.RunFilter{Year: validator.ParseOptionalInt("year", q.Get("year"), &errs)}
	if page := validator.ParseOptionalInt("page", q.Get("page"), &errs); page != nil {
		filter.Page = *page
	}
	if limit := validator.ParseOptionalInt("limit", q.Get("limit"), &errs); limit != nil {
		filter.Limit = *limit
	}
	if status := q.Get("status"); status != "" {
		s := payroll.RunStatus(status)
		filter.Status = &s
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	runs, total, err := h.payrollService.ListRuns(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	list := payroll.NewListPayrollRunResponse(runs, total, filter)
	response.SuccessWithMeta(w, list.Runs, &response.Meta{
		Page:       list.Page,
		Limit:      list.Limit,
		TotalItems: list.TotalCount,
		TotalPages: list.TotalPages,
	})
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPayrollRunResponse(run))
}

func (h *payrollHandlerImpl) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	if err := h.payrollService.DeleteDraft(r.Context(), id, middleware.ActorID(r.Context())); err != nil {
		response.HandleError(w, err)
		return
	}

	response.NoContent(w)
}

// ========== WORKFLOW ==========

func (h *payrollHandlerImpl) ConfirmRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.payrollService.Confirm(r.Context(), id, middleware.ActorID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPayrollRunResponse(run))
}

func (h *payrollHandlerImpl) MarkRunPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.payrollService.MarkAsPaid(r.Context(), id, middleware.ActorID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPayrollRunResponse(run))
}

func (h *payrollHandlerImpl) RegenerateRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.payrollService.Regenerate(r.Context(), id, middleware.ActorID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run regenerated", payroll.NewPayrollRunResponse(run))
}

// ========== EXPORTS ==========

func (h *payrollHandlerImpl) DownloadBankFile(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	content, err := h.payrollService.GenerateBankFile(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bank-transfer-%s.csv"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *payrollHandlerImpl) ListAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	entries, err := h.payrollService.ListAudit(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, entries)
}
