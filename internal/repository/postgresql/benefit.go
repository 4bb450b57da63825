package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type benefitRepository struct {
	db *database.DB
}

func NewBenefitRepository(db *database.DB) payroll.BenefitRepository {
	return &benefitRepository{db: db}
}

func (r *benefitRepository) ListActiveByEmployees(ctx context.Context, employeeIDs []string) (map[string][]payroll.Benefit, error) {
	result := make(map[string][]payroll.Benefit)
	if len(employeeIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, name, amount, type, frequency, status, created_at
		FROM benefits
		WHERE employee_id = ANY($1::uuid[]) AND status = $2
		ORDER BY employee_id, created_at, id
	`, employeeIDs, string(payroll.BenefitStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b payroll.Benefit
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.Name, &b.Amount, &b.Type, &b.Frequency, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		result[b.EmployeeID] = append(result[b.EmployeeID], b)
	}

	return result, rows.Err()
}

func (r *benefitRepository) MarkProcessed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE benefits
		SET status = $2, processed_at = NOW()
		WHERE id = ANY($1::uuid[]) AND status = $3
	`, ids, string(payroll.BenefitStatusProcessed), string(payroll.BenefitStatusActive))
	if err != nil {
		return 0, fmt.Errorf("failed to mark benefits processed: %w", err)
	}

	return tag.RowsAffected(), nil
}
