package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

// DraftGenerator is the part of the payroll service the job needs.
type DraftGenerator interface {
	Generate(ctx context.Context, month, year int, actorID string) (payroll.PayrollRun, error)
}

type PayrollJobs struct {
	generator DraftGenerator
	actorID   string
	location  *time.Location
	interval  time.Duration
	now       func() time.Time
}

func NewPayrollJobs(generator DraftGenerator, actorID string, location *time.Location, interval time.Duration) *PayrollJobs {
	if location == nil {
		location = time.UTC
	}
	return &PayrollJobs{
		generator: generator,
		actorID:   actorID,
		location:  location,
		interval:  interval,
		now:       time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:       "generate_previous_month_draft",
		Interval:   j.interval,
		RunOnStart: true,
		Fn:         j.GeneratePreviousMonthDraft,
	})
}

// GeneratePreviousMonthDraft creates the DRAFT run for the month before now.
// An existing run or a missing configuration is not a failure.
func (j *PayrollJobs) GeneratePreviousMonthDraft(ctx context.Context) error {
	period := payroll.PeriodOf(j.now().In(j.location)).Previous()

	run, err := j.generator.Generate(ctx, int(period.Month), period.Year, j.actorID)
	switch {
	case errors.Is(err, payroll.ErrDuplicatePeriod):
		slog.Info("cron: payroll run already exists", "period", period.String())
		return nil
	case errors.Is(err, payroll.ErrNoActiveConfiguration):
		slog.Info("cron: no active pay configuration, skipping draft", "period", period.String())
		return nil
	case err != nil:
		return fmt.Errorf("failed to generate draft for %s: %w", period, err)
	}

	slog.Info("cron: payroll draft generated", "period", period.String(), "run_id", run.ID, "lines", len(run.Lines))
	return nil
}
