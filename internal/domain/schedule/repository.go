package schedule

import (
	"context"
	"time"
)

type AssignmentRepository interface {
	// ListActiveByEmployees returns active assignments whose window overlaps
	// [from, to], with their shifts, grouped by employee.
	ListActiveByEmployees(ctx context.Context, employeeIDs []string, from, to time.Time) (map[string][]Assignment, error)
}
