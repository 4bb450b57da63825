package payroll

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
)

const defaultBatchSize = 500

// batchData holds the grouped inputs for every selected employee.
type batchData struct {
	attendance map[string][]attendance.Record
	schedules  map[string][]schedule.Assignment
	benefits   map[string][]payroll.Benefit
}

// loadBatch issues one grouped query per data source and per window of
// employee ids, instead of one query per employee.
func (s *PayrollServiceImpl) loadBatch(ctx context.Context, employeeIDs []string, from, to time.Time) (batchData, error) {
	data := batchData{
		attendance: make(map[string][]attendance.Record, len(employeeIDs)),
		schedules:  make(map[string][]schedule.Assignment, len(employeeIDs)),
		benefits:   make(map[string][]payroll.Benefit, len(employeeIDs)),
	}

	for _, window := range chunk(employeeIDs, s.batchSize) {
		records, err := s.attendanceRepo.ListByEmployees(ctx, window, from, to)
		if err != nil {
			return batchData{}, fmt.Errorf("failed to load attendance: %w", err)
		}
		mergeInto(data.attendance, records)

		assignments, err := s.assignmentRepo.ListActiveByEmployees(ctx, window, from, to)
		if err != nil {
			return batchData{}, fmt.Errorf("failed to load schedules: %w", err)
		}
		mergeInto(data.schedules, assignments)

		benefits, err := s.benefitRepo.ListActiveByEmployees(ctx, window)
		if err != nil {
			return batchData{}, fmt.Errorf("failed to load benefits: %w", err)
		}
		mergeInto(data.benefits, benefits)
	}

	return data, nil
}

// latestAgreements keeps one agreement per employee, the most recently
// created, ordered by employee id.
func latestAgreements(agreements []payroll.CompensationAgreement) []payroll.CompensationAgreement {
	byEmployee := make(map[string]payroll.CompensationAgreement, len(agreements))
	for _, a := range agreements {
		if a.Status != payroll.AgreementStatusActive {
			continue
		}
		current, ok := byEmployee[a.EmployeeID]
		if !ok || a.CreatedAt.After(current.CreatedAt) {
			byEmployee[a.EmployeeID] = a
		}
	}

	out := make([]payroll.CompensationAgreement, 0, len(byEmployee))
	for _, a := range byEmployee {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func mergeInto[T any](dst, src map[string][]T) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}
