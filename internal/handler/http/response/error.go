package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var recErr *payroll.ReconciliationError
	if errors.As(err, &recErr) {
		fail(w, http.StatusConflict, "RECONCILIATION_FAILED", "Payroll total does not match the sum of its lines", map[string]string{
			"run_id":   recErr.RunID,
			"expected": recErr.Expected.StringFixed(2),
			"actual":   recErr.Actual.StringFixed(2),
		})
		return
	}

	switch {
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrDuplicatePeriod):
		Conflict(w, "A payroll run already exists for this period")
	case errors.Is(err, payroll.ErrInvalidStatusTransition), errors.Is(err, payroll.ErrBenefitAlreadyConsumed):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod):
		ValidationError(w, map[string]string{"period": err.Error()})
	case errors.Is(err, payroll.ErrNoActiveConfiguration):
		UnprocessableEntity(w, "No active pay configuration")
	case errors.Is(err, payroll.ErrInvalidConfiguration):
		UnprocessableEntity(w, err.Error())

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
