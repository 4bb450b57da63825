package payroll

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/gocarina/gocsv"
)

// DecryptionPlaceholder replaces an account number that could not be decrypted.
const DecryptionPlaceholder = "ERROR_DESCIFRADO"

// BankTransferRow is one transfer instruction.
type BankTransferRow struct {
	IdentityNumber string `csv:"Identificacion"`
	FullName       string `csv:"Beneficiario"`
	BankName       string `csv:"Banco"`
	AccountType    string `csv:"TipoCuenta"`
	AccountNumber  string `csv:"NumeroCuenta"`
	Amount         string `csv:"Monto"`
	Memo           string `csv:"Detalle"`
}

// GenerateBankFile renders the transfer file of an APPROVED or PAID run.
func (s *PayrollServiceImpl) GenerateBankFile(ctx context.Context, runID string) ([]byte, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != payroll.RunStatusApproved && run.Status != payroll.RunStatusPaid {
		return nil, fmt.Errorf("%w: bank file requires an approved run, got %s", payroll.ErrInvalidStatusTransition, run.Status)
	}

	ids := make([]string, 0, len(run.Lines))
	for _, l := range run.Lines {
		ids = append(ids, l.EmployeeID)
	}
	employees := make(map[string]employee.Employee, len(ids))
	for _, window := range chunk(ids, s.batchSize) {
		found, err := s.employeeRepo.GetByIDs(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("failed to load employees: %w", err)
		}
		for id, e := range found {
			employees[id] = e
		}
	}

	period := payroll.PeriodOf(run.Period)
	rows := s.bankRows(run, employees, period)

	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render bank file: %w", err)
	}

	s.archiveBankFile(ctx, run.ID, period, out)
	return out, nil
}

func (s *PayrollServiceImpl) bankRows(run payroll.PayrollRun, employees map[string]employee.Employee, period payroll.Period) []BankTransferRow {
	rows := make([]BankTransferRow, 0, len(run.Lines))
	for _, l := range run.Lines {
		emp, ok := employees[l.EmployeeID]
		if !ok || !emp.HasBankData() {
			slog.Warn("skipping bank transfer without bank data", "run_id", run.ID, "employee_id", l.EmployeeID)
			continue
		}

		account, err := s.decrypter.DecryptString(emp.BankAccountNumber)
		if err != nil {
			derr := &payroll.DecryptionError{EmployeeID: emp.ID, Field: "bank_account_number", Err: err}
			slog.Error("bank field decryption failed", "run_id", run.ID, "error", derr)
			account = DecryptionPlaceholder
		}

		accountType := ""
		if emp.BankAccountType != nil {
			accountType = *emp.BankAccountType
		}

		rows = append(rows, BankTransferRow{
			IdentityNumber: emp.IdentityNumber,
			FullName:       emp.FullName,
			BankName:       *emp.BankName,
			AccountType:    accountType,
			AccountNumber:  account,
			Amount:         money.Format(l.NetSalary),
			Memo:           period.Memo(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FullName < rows[j].FullName })
	return rows
}

// archiveBankFile keeps a copy of the export. Failures are only logged.
func (s *PayrollServiceImpl) archiveBankFile(ctx context.Context, runID string, period payroll.Period, content []byte) {
	if s.archive == nil {
		return
	}
	path := BankFilePath(period, runID)
	if _, err := s.archive.Upload(ctx, bytes.NewReader(content), path, "text/csv"); err != nil {
		slog.Warn("failed to archive bank file", "run_id", runID, "path", path, "error", err)
	}
}

// BankFilePath is where an exported bank file is archived.
func BankFilePath(period payroll.Period, runID string) string {
	return fmt.Sprintf("bank-files/%s/%s.csv", period, runID)
}
