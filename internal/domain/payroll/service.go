package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
)

type PayrollService interface {
	// Generate computes and stores a DRAFT run for the period.
	Generate(ctx context.Context, month, year int, actorID string) (PayrollRun, error)
	// Regenerate replaces a DRAFT run with a freshly computed one for the same period.
	Regenerate(ctx context.Context, runID, actorID string) (PayrollRun, error)
	DeleteDraft(ctx context.Context, runID, actorID string) error

	// Confirm moves DRAFT to APPROVED. It is a no-op on an APPROVED run.
	Confirm(ctx context.Context, runID, actorID string) (PayrollRun, error)
	MarkAsPaid(ctx context.Context, runID, actorID string) (PayrollRun, error)

	GenerateBankFile(ctx context.Context, runID string) ([]byte, error)

	GetRun(ctx context.Context, runID string) (PayrollRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]PayrollRun, int64, error)
	ListAudit(ctx context.Context, runID string) ([]audit.Entry, error)
}
