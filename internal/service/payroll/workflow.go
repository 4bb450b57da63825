package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Confirm reconciles a DRAFT run, consumes its one-time benefits and approves
// it in a single transaction. Confirming an APPROVED run returns it unchanged.
func (s *PayrollServiceImpl) Confirm(ctx context.Context, runID, actorID string) (payroll.PayrollRun, error) {
	var (
		run      payroll.PayrollRun
		consumed int64
		noop     bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.runRepo.GetByIDForUpdate(ctx, runID)
		if err != nil {
			return err
		}

		switch r.Status {
		case payroll.RunStatusApproved:
			run, noop = r, true
			return nil
		case payroll.RunStatusDraft:
		default:
			return fmt.Errorf("%w: cannot confirm a %s run", payroll.ErrInvalidStatusTransition, r.Status)
		}

		if err := reconcile(r); err != nil {
			return err
		}

		oneTime := oneTimeBenefitIDs(r.Lines)
		consumed, err = s.benefitRepo.MarkProcessed(ctx, oneTime)
		if err != nil {
			return fmt.Errorf("failed to consume one-time benefits: %w", err)
		}
		if consumed < int64(len(oneTime)) {
			return fmt.Errorf("%w: run %s pays %d one-time benefits but only %d were still active",
				payroll.ErrBenefitAlreadyConsumed, r.ID, len(oneTime), consumed)
		}

		now := s.now()
		if err := s.runRepo.UpdateStatus(ctx, payroll.StatusUpdate{
			RunID:   r.ID,
			From:    payroll.RunStatusDraft,
			To:      payroll.RunStatusApproved,
			ActorID: actorID,
			At:      now,
		}); err != nil {
			return err
		}
		r.Status = payroll.RunStatusApproved
		r.ApprovedBy = &actorID
		r.ApprovedAt = &now
		r.UpdatedAt = now

		s.recordAudit(ctx, audit.ActionConfirm, r.ID, actorID,
			fmt.Sprintf("approved payroll %s, total %s, %d one-time benefits consumed",
				payroll.PeriodOf(r.Period), money.Format(r.TotalAmount), consumed))

		run = r
		return nil
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	if noop {
		slog.Debug("payroll run already approved", "run_id", run.ID)
	} else {
		slog.Info("payroll run approved", "run_id", run.ID, "benefits_consumed", consumed)
	}
	return run, nil
}

// MarkAsPaid stamps the payment date on an APPROVED run.
func (s *PayrollServiceImpl) MarkAsPaid(ctx context.Context, runID, actorID string) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.runRepo.GetByIDForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if r.Status != payroll.RunStatusApproved {
			return fmt.Errorf("%w: cannot pay a %s run", payroll.ErrInvalidStatusTransition, r.Status)
		}

		now := s.now()
		if err := s.runRepo.UpdateStatus(ctx, payroll.StatusUpdate{
			RunID:       r.ID,
			From:        payroll.RunStatusApproved,
			To:          payroll.RunStatusPaid,
			ActorID:     actorID,
			At:          now,
			PaymentDate: &now,
		}); err != nil {
			return err
		}
		r.Status = payroll.RunStatusPaid
		r.PaymentDate = &now
		r.PaidBy = &actorID
		r.UpdatedAt = now

		run = r
		return nil
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	slog.Info("payroll run paid", "run_id", run.ID)
	s.recordAudit(ctx, audit.ActionPayment, run.ID, actorID,
		fmt.Sprintf("paid payroll %s, total %s", payroll.PeriodOf(run.Period), money.Format(run.TotalAmount)))

	return run, nil
}

// reconcile compares the header total with the sum of the stored line nets,
// with zero tolerance.
func reconcile(run payroll.PayrollRun) error {
	sum := decimal.Zero
	for _, l := range run.Lines {
		sum = money.Add(sum, l.NetSalary)
	}
	if !sum.Equal(run.TotalAmount) {
		return &payroll.ReconciliationError{RunID: run.ID, Expected: run.TotalAmount, Actual: sum}
	}
	return nil
}

func oneTimeBenefitIDs(lines []payroll.PayrollLine) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, l := range lines {
		for _, b := range l.Bonuses {
			if !b.IsOneTimeBenefit() {
				continue
			}
			if _, ok := seen[*b.SourceID]; ok {
				continue
			}
			seen[*b.SourceID] = struct{}{}
			ids = append(ids, *b.SourceID)
		}
	}
	return ids
}
