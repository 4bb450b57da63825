package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repositories groups the data sources the payroll service reads and writes.
type Repositories struct {
	Configurations payroll.ConfigurationRepository
	Agreements     payroll.AgreementRepository
	Benefits       payroll.BenefitRepository
	Runs           payroll.RunRepository
	Attendance     attendance.AttendanceRepository
	Assignments    schedule.AssignmentRepository
	Employees      employee.EmployeeRepository
	Audit          audit.AuditRepository
}

// Decrypter opens encrypted bank fields.
type Decrypter interface {
	DecryptString(value []byte) (string, error)
}

type Options struct {
	Location  *time.Location
	BatchSize int
	Now       func() time.Time
}

type PayrollServiceImpl struct {
	tx             payroll.Transactor
	configRepo     payroll.ConfigurationRepository
	agreementRepo  payroll.AgreementRepository
	benefitRepo    payroll.BenefitRepository
	runRepo        payroll.RunRepository
	attendanceRepo attendance.AttendanceRepository
	assignmentRepo schedule.AssignmentRepository
	employeeRepo   employee.EmployeeRepository
	auditRepo      audit.AuditRepository
	decrypter      Decrypter
	archive        storage.FileStorage
	calculator     *Calculator
	batchSize      int
	now            func() time.Time
}

// NewPayrollService wires the service. archive may be nil.
func NewPayrollService(
	tx payroll.Transactor,
	repos Repositories,
	decrypter Decrypter,
	archive storage.FileStorage,
	opts Options,
) payroll.PayrollService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &PayrollServiceImpl{
		tx:             tx,
		configRepo:     repos.Configurations,
		agreementRepo:  repos.Agreements,
		benefitRepo:    repos.Benefits,
		runRepo:        repos.Runs,
		attendanceRepo: repos.Attendance,
		assignmentRepo: repos.Assignments,
		employeeRepo:   repos.Employees,
		auditRepo:      repos.Audit,
		decrypter:      decrypter,
		archive:        archive,
		calculator:     NewCalculator(opts.Location),
		batchSize:      opts.BatchSize,
		now:            opts.Now,
	}
}

// ========== GENERATION ==========

func (s *PayrollServiceImpl) Generate(ctx context.Context, month, year int, actorID string) (payroll.PayrollRun, error) {
	req := payroll.GenerateRunRequest{Month: month, Year: year}
	if err := req.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}
	period, err := payroll.NewPeriod(month, year)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	var run payroll.PayrollRun
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err = s.generate(ctx, period, actorID)
		return err
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	slog.Info("payroll run generated", "run_id", run.ID, "period", period.String(), "lines", len(run.Lines), "total", money.Format(run.TotalAmount))
	s.recordAudit(ctx, audit.ActionGenerate, run.ID, actorID,
		fmt.Sprintf("generated payroll %s for %d employees, total %s", period, len(run.Lines), money.Format(run.TotalAmount)))

	return run, nil
}

func (s *PayrollServiceImpl) Regenerate(ctx context.Context, runID, actorID string) (payroll.PayrollRun, error) {
	var (
		run      payroll.PayrollRun
		replaced string
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.runRepo.GetByIDForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if existing.Status != payroll.RunStatusDraft {
			return fmt.Errorf("%w: cannot regenerate a %s run", payroll.ErrInvalidStatusTransition, existing.Status)
		}
		if err := s.runRepo.Delete(ctx, existing.ID); err != nil {
			return err
		}
		replaced = existing.ID

		run, err = s.generate(ctx, payroll.PeriodOf(existing.Period), actorID)
		return err
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	s.recordAudit(ctx, audit.ActionRegenerate, run.ID, actorID,
		fmt.Sprintf("regenerated payroll %s replacing run %s, total %s", payroll.PeriodOf(run.Period), replaced, money.Format(run.TotalAmount)))

	return run, nil
}

func (s *PayrollServiceImpl) DeleteDraft(ctx context.Context, runID, actorID string) error {
	var period payroll.Period
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runRepo.GetByIDForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if run.Status != payroll.RunStatusDraft {
			return fmt.Errorf("%w: cannot delete a %s run", payroll.ErrInvalidStatusTransition, run.Status)
		}
		period = payroll.PeriodOf(run.Period)
		return s.runRepo.Delete(ctx, run.ID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, audit.ActionDelete, runID, actorID, fmt.Sprintf("deleted draft payroll %s", period))
	return nil
}

// generate must run inside a transaction.
func (s *PayrollServiceImpl) generate(ctx context.Context, period payroll.Period, actorID string) (payroll.PayrollRun, error) {
	exists, err := s.runRepo.ExistsForPeriod(ctx, period.Start())
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to check existing run: %w", err)
	}
	if exists {
		return payroll.PayrollRun{}, fmt.Errorf("%w: %s", payroll.ErrDuplicatePeriod, period)
	}

	cfg, err := s.configRepo.GetActive(ctx)
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	if err := cfg.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}

	all, err := s.agreementRepo.ListActive(ctx, period.Start(), period.End())
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to load agreements: %w", err)
	}
	agreements := latestAgreements(all)

	employeeIDs := make([]string, 0, len(agreements))
	for _, a := range agreements {
		employeeIDs = append(employeeIDs, a.EmployeeID)
	}

	data, err := s.loadBatch(ctx, employeeIDs, period.Start(), period.End())
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	now := s.now()
	run := payroll.PayrollRun{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Period:      period.Start(),
		EndDate:     period.End(),
		TotalAmount: decimal.Zero,
		Status:      payroll.RunStatusDraft,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Lines:       make([]payroll.PayrollLine, 0, len(agreements)),
	}

	for _, a := range agreements {
		res, err := s.calculator.Calculate(cfg, EmployeeInput{
			Agreement:  a,
			Attendance: data.attendance[a.EmployeeID],
			Schedules:  data.schedules[a.EmployeeID],
			Benefits:   data.benefits[a.EmployeeID],
		})
		if err != nil {
			return payroll.PayrollRun{}, fmt.Errorf("failed to calculate payroll for employee %s: %w", a.EmployeeID, err)
		}
		if res.FloorApplied {
			slog.Warn("net salary floored at zero",
				"employee_id", a.EmployeeID,
				"period", period.String(),
				"warnings", res.Warnings)
		}

		line := res.Line(uuid.Must(uuid.NewV7()).String(), run.ID, now)
		run.Lines = append(run.Lines, line)
		// Sum the rounded values so the total can be reproduced from stored lines.
		run.TotalAmount = money.Add(run.TotalAmount, line.NetSalary)
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		return payroll.PayrollRun{}, err
	}
	return run, nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) GetRun(ctx context.Context, runID string) (payroll.PayrollRun, error) {
	return s.runRepo.GetByID(ctx, runID)
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	return s.runRepo.List(ctx, filter)
}

func (s *PayrollServiceImpl) ListAudit(ctx context.Context, runID string) ([]audit.Entry, error) {
	entries, err := s.auditRepo.ListByEntity(ctx, audit.EntityPayrollRun, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	if len(entries) == 0 {
		// deleted drafts keep their trail, so only fail for ids never seen
		if _, err := s.runRepo.GetByID(ctx, runID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// recordAudit never fails the caller.
func (s *PayrollServiceImpl) recordAudit(ctx context.Context, action audit.Action, runID, actorID, detail string) {
	entry := audit.Entry{
		ID:         uuid.Must(uuid.NewV7()).String(),
		EntityType: audit.EntityPayrollRun,
		EntityID:   runID,
		Action:     action,
		ActorID:    actorID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		slog.Error("failed to record audit entry", "action", action, "run_id", runID, "error", err)
	}
}
