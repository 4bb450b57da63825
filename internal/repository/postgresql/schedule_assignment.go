package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type assignmentRepository struct {
	db *database.DB
}

func NewAssignmentRepository(db *database.DB) schedule.AssignmentRepository {
	return &assignmentRepository{db: db}
}

// ListActiveByEmployees reads shift boundaries as seconds since midnight.
func (r *assignmentRepository) ListActiveByEmployees(ctx context.Context, employeeIDs []string, from, to time.Time) (map[string][]schedule.Assignment, error) {
	result := make(map[string][]schedule.Assignment)
	if len(employeeIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT a.id, a.employee_id, a.start_date, a.end_date, a.is_active, a.created_at,
			   s.id, s.name,
			   EXTRACT(EPOCH FROM s.start_time)::bigint,
			   EXTRACT(EPOCH FROM s.end_time)::bigint,
			   s.tolerance_minutes, s.break_minutes
		FROM schedule_assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.employee_id = ANY($1::uuid[])
		  AND a.is_active
		  AND a.start_date <= $3
		  AND (a.end_date IS NULL OR a.end_date >= $2)
		ORDER BY a.employee_id, a.created_at DESC
	`, employeeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a          schedule.Assignment
			start, end int64
		)
		if err := rows.Scan(
			&a.ID, &a.EmployeeID, &a.StartDate, &a.EndDate, &a.Active, &a.CreatedAt,
			&a.Shift.ID, &a.Shift.Name, &start, &end,
			&a.Shift.ToleranceMinutes, &a.Shift.BreakMinutes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule assignment: %w", err)
		}
		a.Shift.StartTime = time.Duration(start) * time.Second
		a.Shift.EndTime = time.Duration(end) * time.Second
		result[a.EmployeeID] = append(result[a.EmployeeID], a)
	}

	return result, rows.Err()
}
