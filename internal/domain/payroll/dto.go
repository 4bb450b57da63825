package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUEST DTOs ==========

type GenerateRunRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (r *GenerateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 1 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 1 and 9999"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunFilter struct {
	Status *RunStatus
	Year   *int
	Page   int
	Limit  int
}

func (f *RunFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil {
		switch *f.Status {
		case RunStatusDraft, RunStatusApproved, RunStatusPaid:
		default:
			errs = append(errs, validator.ValidationError{Field: "status", Message: "must be DRAFT, APPROVED or PAID"})
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "must not exceed 100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (f RunFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ========== RESPONSE DTOs ==========

type LineItemResponse struct {
	Name       string     `json:"name"`
	Amount     string     `json:"amount"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   *string    `json:"source_id,omitempty"`
}

type PayrollLineResponse struct {
	ID             string             `json:"id"`
	EmployeeID     string             `json:"employee_id"`
	BaseSalary     string             `json:"base_salary"`
	EarnedSalary   string             `json:"earned_salary"`
	WorkedDays     int                `json:"worked_days"`
	AbsentDays     int                `json:"absent_days"`
	OvertimeHours  string             `json:"overtime_hours"`
	OvertimeAmount string             `json:"overtime_amount"`
	Bonuses        []LineItemResponse `json:"bonuses"`
	Deductions     []LineItemResponse `json:"deductions"`
	NetSalary      string             `json:"net_salary"`
	Warnings       []string           `json:"warnings,omitempty"`
}

type PayrollRunResponse struct {
	ID          string                `json:"id"`
	Period      string                `json:"period"`
	EndDate     string                `json:"end_date"`
	TotalAmount string                `json:"total_amount"`
	Status      RunStatus             `json:"status"`
	PaymentDate *time.Time            `json:"payment_date,omitempty"`
	CreatedBy   string                `json:"created_by"`
	ApprovedBy  *string               `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time            `json:"approved_at,omitempty"`
	PaidBy      *string               `json:"paid_by,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	Lines       []PayrollLineResponse `json:"lines,omitempty"`
}

type ListPayrollRunResponse struct {
	Runs       []PayrollRunResponse `json:"runs"`
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

func NewPayrollRunResponse(run PayrollRun) PayrollRunResponse {
	resp := PayrollRunResponse{
		ID:          run.ID,
		Period:      PeriodOf(run.Period).String(),
		EndDate:     run.EndDate.Format("2006-01-02"),
		TotalAmount: fixed(run.TotalAmount),
		Status:      run.Status,
		PaymentDate: run.PaymentDate,
		CreatedBy:   run.CreatedBy,
		ApprovedBy:  run.ApprovedBy,
		ApprovedAt:  run.ApprovedAt,
		PaidBy:      run.PaidBy,
		CreatedAt:   run.CreatedAt,
	}
	for _, l := range run.Lines {
		resp.Lines = append(resp.Lines, PayrollLineResponse{
			ID:             l.ID,
			EmployeeID:     l.EmployeeID,
			BaseSalary:     fixed(l.BaseSalary),
			EarnedSalary:   fixed(l.EarnedSalary),
			WorkedDays:     l.WorkedDays,
			AbsentDays:     l.AbsentDays,
			OvertimeHours:  fixed(l.OvertimeHours),
			OvertimeAmount: fixed(l.OvertimeAmount),
			Bonuses:        itemResponses(l.Bonuses),
			Deductions:     itemResponses(l.Deductions),
			NetSalary:      fixed(l.NetSalary),
			Warnings:       l.Warnings,
		})
	}
	return resp
}

func NewListPayrollRunResponse(runs []PayrollRun, total int64, filter RunFilter) ListPayrollRunResponse {
	items := make([]PayrollRunResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, NewPayrollRunResponse(r))
	}
	totalPages := 0
	if filter.Limit > 0 {
		totalPages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}
	return ListPayrollRunResponse{
		Runs:       items,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}
}

func itemResponses(items []LineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, LineItemResponse{
			Name:       i.Name,
			Amount:     fixed(i.Amount),
			SourceKind: i.SourceKind,
			SourceID:   i.SourceID,
		})
	}
	return out
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
