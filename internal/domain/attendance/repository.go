package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	// ListByEmployees returns records dated within [from, to], grouped by employee.
	ListByEmployees(ctx context.Context, employeeIDs []string, from, to time.Time) (map[string][]Record, error)
}
