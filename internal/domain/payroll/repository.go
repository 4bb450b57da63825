package payroll

import (
	"context"
	"time"
)

// ConfigurationRepository reads pay configurations.
type ConfigurationRepository interface {
	// GetActive returns ErrNoActiveConfiguration when none is active.
	GetActive(ctx context.Context) (PayConfiguration, error)
}

type AgreementRepository interface {
	// ListActive returns every ACTIVE agreement whose validity window overlaps
	// [from, to], newest first.
	ListActive(ctx context.Context, from, to time.Time) ([]CompensationAgreement, error)
}

type BenefitRepository interface {
	ListActiveByEmployees(ctx context.Context, employeeIDs []string) (map[string][]Benefit, error)
	// MarkProcessed flips ACTIVE benefits to PROCESSED and returns how many changed.
	MarkProcessed(ctx context.Context, ids []string) (int64, error)
}

type RunRepository interface {
	// Create writes the header and all lines. A second run for the same
	// period yields ErrDuplicatePeriod.
	Create(ctx context.Context, run PayrollRun) error
	GetByID(ctx context.Context, id string) (PayrollRun, error)
	// GetByIDForUpdate locks the header row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (PayrollRun, error)
	ExistsForPeriod(ctx context.Context, period time.Time) (bool, error)
	List(ctx context.Context, filter RunFilter) ([]PayrollRun, int64, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	Delete(ctx context.Context, id string) error
}

// StatusUpdate describes one workflow transition.
type StatusUpdate struct {
	RunID       string
	From        RunStatus
	To          RunStatus
	ActorID     string
	At          time.Time
	PaymentDate *time.Time
}

// Transactor runs fn in one atomic unit of work. Repositories called with
// the ctx passed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
