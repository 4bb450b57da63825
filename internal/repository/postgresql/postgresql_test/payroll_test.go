package postgresql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/fieldcrypt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	payrollservice "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSetup *TestDatabaseSetup
	setupErr  error
)

func TestMain(m *testing.M) {
	testSetup, setupErr = NewTestDatabase()
	code := m.Run()
	if testSetup != nil {
		testSetup.Close()
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *database.DB {
	t.Helper()
	if setupErr != nil {
		t.Skipf("integration database unavailable: %v", setupErr)
	}
	require.NoError(t, testSetup.TruncateAllTables(context.Background()))
	return testSetup.DB
}

func newID() string { return uuid.Must(uuid.NewV7()).String() }

type seeded struct {
	employeeIDs []string
	benefitID   string
}

func seed(t *testing.T, ctx context.Context, db *database.DB, cipher *fieldcrypt.Cipher) seeded {
	t.Helper()

	cfgID := newID()
	_, err := db.Exec(ctx, `INSERT INTO pay_configurations (id, version, working_days, is_active) VALUES ($1, 1, 30, TRUE)`, cfgID)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `
		INSERT INTO pay_items (id, configuration_id, name, kind, is_mandatory, percentage, fixed_amount, position)
		VALUES ($1, $2, 'Aporte personal', 'DEDUCTION', TRUE, 9.45, NULL, 1),
		       ($3, $2, 'Alimentacion', 'EARNING', FALSE, NULL, 20, 2)
	`, newID(), cfgID, newID())
	require.NoError(t, err)

	var s seeded
	for i, salary := range []string{"1234.56", "1000"} {
		empID := newID()
		account, err := cipher.EncryptString(fmt.Sprintf("22001234%02d", i))
		require.NoError(t, err)

		_, err = db.Exec(ctx, `
			INSERT INTO employees (id, identity_number, full_name, bank_name, bank_account_type, bank_account_number)
			VALUES ($1, $2, $3, 'Banco Pichincha', 'AHORROS', $4)
		`, empID, fmt.Sprintf("09000000%02d", i), fmt.Sprintf("Employee %d", i), account)
		require.NoError(t, err)

		_, err = db.Exec(ctx, `
			INSERT INTO compensation_agreements (id, employee_id, salary, status, start_date)
			VALUES ($1, $2, $3, 'ACTIVE', '2023-01-01')
		`, newID(), empID, salary)
		require.NoError(t, err)

		s.employeeIDs = append(s.employeeIDs, empID)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO attendances (id, employee_id, date, worked_hours, status)
		VALUES ($1, $2, '2024-03-04', 0, 'ABSENT')
	`, newID(), s.employeeIDs[0])
	require.NoError(t, err)

	s.benefitID = newID()
	_, err = db.Exec(ctx, `
		INSERT INTO benefits (id, employee_id, name, amount, frequency, status)
		VALUES ($1, $2, 'Bono anual', 150, 'ONE_TIME', 'ACTIVE')
	`, s.benefitID, s.employeeIDs[1])
	require.NoError(t, err)

	return s
}

func newService(db *database.DB, cipher *fieldcrypt.Cipher) payroll.PayrollService {
	return payrollservice.NewPayrollService(
		postgresql.NewTransactor(db, 3),
		payrollservice.Repositories{
			Configurations: postgresql.NewConfigurationRepository(db),
			Agreements:     postgresql.NewAgreementRepository(db),
			Benefits:       postgresql.NewBenefitRepository(db),
			Runs:           postgresql.NewRunRepository(db),
			Attendance:     postgresql.NewAttendanceRepository(db),
			Assignments:    postgresql.NewAssignmentRepository(db),
			Employees:      postgresql.NewEmployeeRepository(db),
			Audit:          postgresql.NewAuditRepository(db),
		},
		cipher,
		nil,
		payrollservice.Options{Location: time.UTC},
	)
}

func testCipher(t *testing.T) *fieldcrypt.Cipher {
	t.Helper()
	c, err := fieldcrypt.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	return c
}

func TestPayrollLifecycle(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	cipher := testCipher(t)
	s := seed(t, ctx, db, cipher)
	svc := newService(db, cipher)

	run, err := svc.Generate(ctx, 3, 2024, "user-1")
	require.NoError(t, err)
	require.Len(t, run.Lines, 2)

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.True(t, stored.TotalAmount.Equal(run.TotalAmount))

	sum := decimal.Zero
	for _, l := range stored.Lines {
		sum = sum.Add(l.NetSalary)
		assert.NotEmpty(t, l.Deductions)
	}
	assert.True(t, sum.Equal(stored.TotalAmount))

	_, err = svc.Generate(ctx, 3, 2024, "user-1")
	assert.ErrorIs(t, err, payroll.ErrDuplicatePeriod)

	approved, err := svc.Confirm(ctx, run.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusApproved, approved.Status)

	var status string
	require.NoError(t, db.QueryRow(ctx, "SELECT status FROM benefits WHERE id = $1", s.benefitID).Scan(&status))
	assert.Equal(t, string(payroll.BenefitStatusProcessed), status)

	paid, err := svc.MarkAsPaid(ctx, run.ID, "user-3")
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusPaid, paid.Status)

	file, err := svc.GenerateBankFile(ctx, run.ID)
	require.NoError(t, err)
	assert.Contains(t, string(file), "Pago nomina 03/2024")

	entries, err := svc.ListAudit(ctx, run.ID)
	require.NoError(t, err)
	var actions []audit.Action
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionGenerate, audit.ActionConfirm, audit.ActionPayment}, actions)
}

func TestReconciliationFailureRollsBack(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	cipher := testCipher(t)
	s := seed(t, ctx, db, cipher)
	svc := newService(db, cipher)

	run, err := svc.Generate(ctx, 3, 2024, "user-1")
	require.NoError(t, err)

	_, err = db.Exec(ctx, "UPDATE payroll_lines SET net_salary = net_salary + 0.01 WHERE id = $1", run.Lines[0].ID)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, run.ID, "user-2")
	assert.ErrorIs(t, err, payroll.ErrReconciliation)

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusDraft, stored.Status)

	var status string
	require.NoError(t, db.QueryRow(ctx, "SELECT status FROM benefits WHERE id = $1", s.benefitID).Scan(&status))
	assert.Equal(t, string(payroll.BenefitStatusActive), status)
}

func TestConcurrentGenerationCreatesOneRun(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	cipher := testCipher(t)
	seed(t, ctx, db, cipher)
	svc := newService(db, cipher)

	const workers = 4
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Generate(ctx, 6, 2024, "user-1"); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, err := range failed {
		assert.True(t, errors.Is(err, payroll.ErrDuplicatePeriod), "unexpected error: %v", err)
	}
	assert.Len(t, failed, workers-1)

	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs WHERE period = '2024-06-01'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunRepository_UpdateStatusChecksCurrentStatus(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewRunRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	run := payroll.PayrollRun{
		ID: newID(), Period: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.Zero, Status: payroll.RunStatusDraft, CreatedBy: "user-1", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, run))

	err := repo.UpdateStatus(ctx, payroll.StatusUpdate{RunID: run.ID, From: payroll.RunStatusApproved, To: payroll.RunStatusPaid, ActorID: "user-1", At: now, PaymentDate: &now})
	assert.ErrorIs(t, err, payroll.ErrInvalidStatusTransition)

	err = repo.UpdateStatus(ctx, payroll.StatusUpdate{RunID: newID(), From: payroll.RunStatusDraft, To: payroll.RunStatusApproved, ActorID: "user-1", At: now})
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)

	year := 2024
	runs, total, err := repo.List(ctx, payroll.RunFilter{Year: &year, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	require.NoError(t, repo.Delete(ctx, run.ID))
	assert.ErrorIs(t, repo.Delete(ctx, run.ID), payroll.ErrRunNotFound)
}
