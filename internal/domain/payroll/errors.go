package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicatePeriod         = errors.New("payroll run already exists for this period")
	ErrNoActiveConfiguration   = errors.New("no active pay configuration")
	ErrInvalidConfiguration    = errors.New("invalid pay configuration")
	ErrRunNotFound             = errors.New("payroll run not found")
	ErrInvalidPeriod           = errors.New("invalid payroll period")
	ErrInvalidStatusTransition = errors.New("invalid payroll status transition")
	ErrReconciliation          = errors.New("payroll reconciliation failed")
	ErrDecryption              = errors.New("bank data decryption failed")

	// ErrBenefitAlreadyConsumed means a one-time benefit on the run was
	// processed by another approval. The draft must be regenerated.
	ErrBenefitAlreadyConsumed = errors.New("one-time benefit already consumed")
)

// ReconciliationError is returned by confirm when the header total does not
// match the sum of the line net salaries.
type ReconciliationError struct {
	RunID    string
	Expected decimal.Decimal // header total
	Actual   decimal.Decimal // sum of lines
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payroll run %s: header total %s does not match line sum %s",
		e.RunID, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

func (e *ReconciliationError) Unwrap() error {
	return ErrReconciliation
}

// DecryptionError is row-scoped: it never aborts a bank file export.
type DecryptionError struct {
	EmployeeID string
	Field      string
	Err        error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("employee %s: cannot decrypt %s: %v", e.EmployeeID, e.Field, e.Err)
}

func (e *DecryptionError) Unwrap() []error {
	return []error{ErrDecryption, e.Err}
}
