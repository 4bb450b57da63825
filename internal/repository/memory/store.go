// Package memory provides in-memory repositories for tests and local
// experiments. Transactions are serialized and rolled back by snapshot.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	configs     []payroll.PayConfiguration
	agreements  []payroll.CompensationAgreement
	benefits    map[string]payroll.Benefit
	runs        map[string]payroll.PayrollRun
	attendance  []attendance.Record
	assignments []schedule.Assignment
	employees   map[string]employee.Employee
	audit       []audit.Entry

	auditErr error
}

func NewStore() *Store {
	return &Store{
		benefits:  make(map[string]payroll.Benefit),
		runs:      make(map[string]payroll.PayrollRun),
		employees: make(map[string]employee.Employee),
	}
}

type snapshot struct {
	configs     []payroll.PayConfiguration
	agreements  []payroll.CompensationAgreement
	benefits    map[string]payroll.Benefit
	runs        map[string]payroll.PayrollRun
	attendance  []attendance.Record
	assignments []schedule.Assignment
	employees   map[string]employee.Employee
	audit       []audit.Entry
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make(map[string]payroll.PayrollRun, len(s.runs))
	for id, r := range s.runs {
		runs[id] = copyRun(r)
	}
	return snapshot{
		configs:     slices.Clone(s.configs),
		agreements:  slices.Clone(s.agreements),
		benefits:    maps.Clone(s.benefits),
		runs:        runs,
		attendance:  slices.Clone(s.attendance),
		assignments: slices.Clone(s.assignments),
		employees:   maps.Clone(s.employees),
		audit:       slices.Clone(s.audit),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = snap.configs
	s.agreements = snap.agreements
	s.benefits = snap.benefits
	s.runs = snap.runs
	s.attendance = snap.attendance
	s.assignments = snap.assignments
	s.employees = snap.employees
	s.audit = snap.audit
}

func copyRun(r payroll.PayrollRun) payroll.PayrollRun {
	r.Lines = slices.Clone(r.Lines)
	for i := range r.Lines {
		r.Lines[i].Bonuses = slices.Clone(r.Lines[i].Bonuses)
		r.Lines[i].Deductions = slices.Clone(r.Lines[i].Deductions)
	}
	return r
}

// ========== SEEDING ==========

func (s *Store) AddConfiguration(c payroll.PayConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Active {
		for i := range s.configs {
			s.configs[i].Active = false
		}
	}
	s.configs = append(s.configs, c)
}

func (s *Store) AddAgreement(a payroll.CompensationAgreement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agreements = append(s.agreements, a)
}

func (s *Store) AddBenefit(b payroll.Benefit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benefits[b.ID] = b
}

func (s *Store) AddAttendance(records ...attendance.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance = append(s.attendance, records...)
}

func (s *Store) AddAssignment(a schedule.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, a)
}

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// Benefit returns the stored benefit by id.
func (s *Store) Benefit(id string) (payroll.Benefit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.benefits[id]
	return b, ok
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// SetLineNetSalary overwrites a stored line's net salary, bypassing the service.
func (s *Store) SetLineNetSalary(runID string, index int, net decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok || index < 0 || index >= len(r.Lines) {
		return false
	}
	r = copyRun(r)
	r.Lines[index].NetSalary = net
	s.runs[runID] = r
	return true
}

// FailAudit makes every following audit write return err. Pass nil to reset.
func (s *Store) FailAudit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditErr = err
}

// ========== TRANSACTIONS ==========

type txKey struct{}

type transactor struct {
	s *Store
}

func NewTransactor(s *Store) payroll.Transactor {
	return &transactor{s: s}
}

// WithinTransaction serializes units of work and restores the previous state
// when fn fails. Nested calls join the outer transaction.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
