package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListByEmployees(ctx context.Context, employeeIDs []string, from, to time.Time) (map[string][]attendance.Record, error) {
	result := make(map[string][]attendance.Record)
	if len(employeeIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, employee_id, date, check_in, check_out, worked_hours, overtime_hours, status, created_at
		FROM attendances
		WHERE employee_id = ANY($1::uuid[])
		  AND date BETWEEN $2 AND $3
		ORDER BY employee_id, date
	`, employeeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec      attendance.Record
			overtime decimal.NullDecimal
		)
		if err := rows.Scan(
			&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut,
			&rec.WorkedHours, &overtime, &rec.Status, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		rec.OvertimeHours = nullableDecimal(overtime)
		result[rec.EmployeeID] = append(result[rec.EmployeeID], rec)
	}

	return result, rows.Err()
}
