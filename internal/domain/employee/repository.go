package employee

import "context"

type EmployeeRepository interface {
	// GetByIDs returns the employees found, keyed by id. Unknown ids are omitted.
	GetByIDs(ctx context.Context, ids []string) (map[string]Employee, error)
}
