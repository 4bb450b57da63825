package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const runPeriodConstraint = "uq_payroll_runs_period"

const runColumns = `id, period, end_date, total_amount, status, payment_date,
	created_by, approved_by, approved_at, paid_by, created_at, updated_at`

type runRepository struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) payroll.RunRepository {
	return &runRepository{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ========== WRITE ==========

func (r *runRepository) Create(ctx context.Context, run payroll.PayrollRun) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO payroll_runs (
			id, period, end_date, total_amount, status, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.Period, run.EndDate, run.TotalAmount, string(run.Status), run.CreatedBy, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, runPeriodConstraint) {
			return fmt.Errorf("%w: %s", payroll.ErrDuplicatePeriod, payroll.PeriodOf(run.Period))
		}
		return fmt.Errorf("failed to create payroll run: %w", err)
	}

	if len(run.Lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range run.Lines {
		bonuses, err := json.Marshal(l.Bonuses)
		if err != nil {
			return fmt.Errorf("failed to encode bonuses: %w", err)
		}
		deductions, err := json.Marshal(l.Deductions)
		if err != nil {
			return fmt.Errorf("failed to encode deductions: %w", err)
		}
		warnings, err := json.Marshal(nonNilStrings(l.Warnings))
		if err != nil {
			return fmt.Errorf("failed to encode warnings: %w", err)
		}

		batch.Queue(`
			INSERT INTO payroll_lines (
				id, run_id, employee_id, agreement_id, base_salary, earned_salary,
				worked_days, absent_days, overtime_hours, overtime_amount,
				undertime_hours, night_hours, bonuses, deductions, net_salary,
				warnings, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			l.ID, run.ID, l.EmployeeID, l.AgreementID, l.BaseSalary, l.EarnedSalary,
			l.WorkedDays, l.AbsentDays, l.OvertimeHours, l.OvertimeAmount,
			l.UndertimeHours, l.NightHours, bonuses, deductions, l.NetSalary,
			warnings, l.CreatedAt,
		)
	}

	results := q.SendBatch(ctx, batch)
	for range run.Lines {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert payroll line: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert payroll lines: %w", err)
	}

	return nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, u payroll.StatusUpdate) error {
	q := GetQuerier(ctx, r.db)

	update := psql.Update("payroll_runs").
		Set("status", string(u.To)).
		Set("updated_at", u.At).
		Where(sq.Eq{"id": u.RunID, "status": string(u.From)})

	switch u.To {
	case payroll.RunStatusApproved:
		update = update.Set("approved_by", u.ActorID).Set("approved_at", u.At)
	case payroll.RunStatusPaid:
		update = update.Set("paid_by", u.ActorID).Set("payment_date", u.PaymentDate)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payroll run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.currentStatus(ctx, u.RunID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: run is %s, expected %s", payroll.ErrInvalidStatusTransition, current, u.From)
	}

	return nil
}

func (r *runRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, "DELETE FROM payroll_runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

// ========== READ ==========

func (r *runRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRun, error) {
	return r.get(ctx, id, false)
}

func (r *runRepository) GetByIDForUpdate(ctx context.Context, id string) (payroll.PayrollRun, error) {
	return r.get(ctx, id, true)
}

func (r *runRepository) get(ctx context.Context, id string, forUpdate bool) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + runColumns + " FROM payroll_runs WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	run, err := scanRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	run.Lines, err = r.lines(ctx, q, run.ID)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	return run, nil
}

func (r *runRepository) lines(ctx context.Context, q database.Querier, runID string) ([]payroll.PayrollLine, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.run_id, l.employee_id, l.agreement_id, l.base_salary, l.earned_salary,
			   l.worked_days, l.absent_days, l.overtime_hours, l.overtime_amount,
			   l.undertime_hours, l.night_hours, l.bonuses, l.deductions, l.net_salary,
			   l.warnings, l.created_at
		FROM payroll_lines l
		LEFT JOIN employees e ON e.id = l.employee_id
		WHERE l.run_id = $1
		ORDER BY e.full_name NULLS LAST, l.employee_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll lines: %w", err)
	}
	defer rows.Close()

	var lines []payroll.PayrollLine
	for rows.Next() {
		var (
			l                             payroll.PayrollLine
			bonuses, deductions, warnings []byte
		)
		if err := rows.Scan(
			&l.ID, &l.RunID, &l.EmployeeID, &l.AgreementID, &l.BaseSalary, &l.EarnedSalary,
			&l.WorkedDays, &l.AbsentDays, &l.OvertimeHours, &l.OvertimeAmount,
			&l.UndertimeHours, &l.NightHours, &bonuses, &deductions, &l.NetSalary,
			&warnings, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll line: %w", err)
		}
		if err := json.Unmarshal(bonuses, &l.Bonuses); err != nil {
			return nil, fmt.Errorf("failed to decode bonuses of line %s: %w", l.ID, err)
		}
		if err := json.Unmarshal(deductions, &l.Deductions); err != nil {
			return nil, fmt.Errorf("failed to decode deductions of line %s: %w", l.ID, err)
		}
		if err := json.Unmarshal(warnings, &l.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings of line %s: %w", l.ID, err)
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (r *runRepository) ExistsForPeriod(ctx context.Context, period time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM payroll_runs WHERE period = $1)", period).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payroll run period: %w", err)
	}

	return exists, nil
}

// List returns run headers without lines, newest period first.
func (r *runRepository) List(ctx context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := sq.And{}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	if filter.Year != nil {
		where = append(where, sq.Expr("EXTRACT(YEAR FROM period) = ?", *filter.Year))
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("payroll_runs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	listSQL, listArgs, err := psql.Select(runColumns).
		From("payroll_runs").
		Where(where).
		OrderBy("period DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll runs: %w", err)
	}

	return runs, total, nil
}

func (r *runRepository) currentStatus(ctx context.Context, id string) (payroll.RunStatus, error) {
	q := GetQuerier(ctx, r.db)

	var status payroll.RunStatus
	err := q.QueryRow(ctx, "SELECT status FROM payroll_runs WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", payroll.ErrRunNotFound
		}
		return "", fmt.Errorf("failed to get payroll run status: %w", err)
	}
	return status, nil
}

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := row.Scan(
		&run.ID, &run.Period, &run.EndDate, &run.TotalAmount, &run.Status, &run.PaymentDate,
		&run.CreatedBy, &run.ApprovedBy, &run.ApprovedAt, &run.PaidBy, &run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
