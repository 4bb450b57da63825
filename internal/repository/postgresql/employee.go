package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) GetByIDs(ctx context.Context, ids []string) (map[string]employee.Employee, error) {
	result := make(map[string]employee.Employee, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, identity_number, full_name, bank_name, bank_account_type, bank_account_number
		FROM employees
		WHERE id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e employee.Employee
		if err := rows.Scan(&e.ID, &e.IdentityNumber, &e.FullName, &e.BankName, &e.BankAccountType, &e.BankAccountNumber); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		result[e.ID] = e
	}

	return result, rows.Err()
}
