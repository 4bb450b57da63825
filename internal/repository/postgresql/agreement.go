package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type agreementRepository struct {
	db *database.DB
}

func NewAgreementRepository(db *database.DB) payroll.AgreementRepository {
	return &agreementRepository{db: db}
}

func (r *agreementRepository) ListActive(ctx context.Context, from, to time.Time) ([]payroll.CompensationAgreement, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, salary, night_surcharge_enabled, weekend_double_overtime,
			   status, start_date, end_date, created_at
		FROM compensation_agreements
		WHERE status = $1
		  AND start_date <= $3
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY created_at DESC, id
	`, string(payroll.AgreementStatusActive), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	defer rows.Close()

	var agreements []payroll.CompensationAgreement
	for rows.Next() {
		var a payroll.CompensationAgreement
		if err := rows.Scan(
			&a.ID, &a.EmployeeID, &a.Salary, &a.NightSurchargeEnabled, &a.WeekendDoubleOvertime,
			&a.Status, &a.StartDate, &a.EndDate, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		agreements = append(agreements, a)
	}

	return agreements, rows.Err()
}
