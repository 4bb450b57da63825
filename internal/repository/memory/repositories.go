package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
)

// ========== CONFIGURATION ==========

type configurationRepository struct{ s *Store }

func NewConfigurationRepository(s *Store) payroll.ConfigurationRepository {
	return &configurationRepository{s: s}
}

func (r *configurationRepository) GetActive(_ context.Context) (payroll.PayConfiguration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.configs {
		if c.Active {
			c.Items = slices.Clone(c.Items)
			sort.SliceStable(c.Items, func(i, j int) bool { return c.Items[i].Position < c.Items[j].Position })
			return c, nil
		}
	}
	return payroll.PayConfiguration{}, payroll.ErrNoActiveConfiguration
}

// ========== AGREEMENTS ==========

type agreementRepository struct{ s *Store }

func NewAgreementRepository(s *Store) payroll.AgreementRepository {
	return &agreementRepository{s: s}
}

func (r *agreementRepository) ListActive(_ context.Context, from, to time.Time) ([]payroll.CompensationAgreement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []payroll.CompensationAgreement
	for _, a := range r.s.agreements {
		if a.Status != payroll.AgreementStatusActive || a.StartDate.After(to) {
			continue
		}
		if a.EndDate != nil && a.EndDate.Before(from) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ========== BENEFITS ==========

type benefitRepository struct{ s *Store }

func NewBenefitRepository(s *Store) payroll.BenefitRepository {
	return &benefitRepository{s: s}
}

func (r *benefitRepository) ListActiveByEmployees(_ context.Context, employeeIDs []string) (map[string][]payroll.Benefit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string][]payroll.Benefit)
	for _, b := range r.s.benefits {
		if b.Status == payroll.BenefitStatusActive && slices.Contains(employeeIDs, b.EmployeeID) {
			out[b.EmployeeID] = append(out[b.EmployeeID], b)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool {
			if list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].ID < list[j].ID
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *benefitRepository) MarkProcessed(_ context.Context, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := r.s.benefits[id]
		if !ok || b.Status != payroll.BenefitStatusActive {
			continue
		}
		b.Status = payroll.BenefitStatusProcessed
		r.s.benefits[id] = b
		n++
	}
	return n, nil
}

// ========== RUNS ==========

type runRepository struct{ s *Store }

func NewRunRepository(s *Store) payroll.RunRepository {
	return &runRepository{s: s}
}

func (r *runRepository) Create(_ context.Context, run payroll.PayrollRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.runs {
		if existing.Period.Equal(run.Period) {
			return fmt.Errorf("%w: %s", payroll.ErrDuplicatePeriod, payroll.PeriodOf(run.Period))
		}
	}
	r.s.runs[run.ID] = copyRun(run)
	return nil
}

func (r *runRepository) GetByID(_ context.Context, id string) (payroll.PayrollRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	run, ok := r.s.runs[id]
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return copyRun(run), nil
}

// GetByIDForUpdate needs no lock beyond the transaction mutex.
func (r *runRepository) GetByIDForUpdate(ctx context.Context, id string) (payroll.PayrollRun, error) {
	return r.GetByID(ctx, id)
}

func (r *runRepository) ExistsForPeriod(_ context.Context, period time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, run := range r.s.runs {
		if run.Period.Equal(period) {
			return true, nil
		}
	}
	return false, nil
}

func (r *runRepository) List(_ context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []payroll.PayrollRun
	for _, run := range r.s.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.Year != nil && run.Period.Year() != *filter.Year {
			continue
		}
		run.Lines = nil
		matched = append(matched, run)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Period.After(matched[j].Period) })

	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *runRepository) UpdateStatus(_ context.Context, u payroll.StatusUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[u.RunID]
	if !ok {
		return payroll.ErrRunNotFound
	}
	if run.Status != u.From {
		return fmt.Errorf("%w: run is %s, expected %s", payroll.ErrInvalidStatusTransition, run.Status, u.From)
	}
	run.Status = u.To
	run.UpdatedAt = u.At
	switch u.To {
	case payroll.RunStatusApproved:
		actor, at := u.ActorID, u.At
		run.ApprovedBy, run.ApprovedAt = &actor, &at
	case payroll.RunStatusPaid:
		actor := u.ActorID
		run.PaidBy, run.PaymentDate = &actor, u.PaymentDate
	}
	r.s.runs[u.RunID] = run
	return nil
}

func (r *runRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.runs[id]; !ok {
		return payroll.ErrRunNotFound
	}
	delete(r.s.runs, id)
	return nil
}

// ========== ATTENDANCE / SCHEDULES / EMPLOYEES ==========

type attendanceRepository struct{ s *Store }

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

func (r *attendanceRepository) ListByEmployees(_ context.Context, employeeIDs []string, from, to time.Time) (map[string][]attendance.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string][]attendance.Record)
	for _, rec := range r.s.attendance {
		if rec.Date.Before(from) || rec.Date.After(to) || !slices.Contains(employeeIDs, rec.EmployeeID) {
			continue
		}
		out[rec.EmployeeID] = append(out[rec.EmployeeID], rec)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}
	return out, nil
}

type assignmentRepository struct{ s *Store }

func NewAssignmentRepository(s *Store) schedule.AssignmentRepository {
	return &assignmentRepository{s: s}
}

func (r *assignmentRepository) ListActiveByEmployees(_ context.Context, employeeIDs []string, from, to time.Time) (map[string][]schedule.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string][]schedule.Assignment)
	for _, a := range r.s.assignments {
		if !a.Active || a.StartDate.After(to) || (a.EndDate != nil && a.EndDate.Before(from)) {
			continue
		}
		if slices.Contains(employeeIDs, a.EmployeeID) {
			out[a.EmployeeID] = append(out[a.EmployeeID], a)
		}
	}
	return out, nil
}

type employeeRepository struct{ s *Store }

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

func (r *employeeRepository) GetByIDs(_ context.Context, ids []string) (map[string]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]employee.Employee, len(ids))
	for _, id := range ids {
		if e, ok := r.s.employees[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// ========== AUDIT ==========

type auditRepository struct{ s *Store }

func NewAuditRepository(s *Store) audit.AuditRepository {
	return &auditRepository{s: s}
}

func (r *auditRepository) Record(_ context.Context, entry audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	r.s.audit = append(r.s.audit, entry)
	return nil
}

func (r *auditRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]audit.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range r.s.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
