package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind enum
type ItemKind string

const (
	ItemKindEarning   ItemKind = "EARNING"
	ItemKindDeduction ItemKind = "DEDUCTION"
)

// PayItem - company-wide earning or deduction. Exactly one of Percentage and
// FixedAmount is set; when both are, FixedAmount wins.
type PayItem struct {
	ID          string
	Name        string
	Kind        ItemKind
	Mandatory   bool
	Percentage  *decimal.Decimal // of earned salary, e.g. 9.45
	FixedAmount *decimal.Decimal
	Position    int
}

// PayConfiguration - versioned parameters, one active at a time
type PayConfiguration struct {
	ID          string
	Version     int
	WorkingDays int
	Active      bool
	Items       []PayItem
	CreatedAt   time.Time
}

// AgreementStatus enum
type AgreementStatus string

const (
	AgreementStatusActive     AgreementStatus = "ACTIVE"
	AgreementStatusTerminated AgreementStatus = "TERMINATED"
)

// CompensationAgreement - employee contract terms relevant to pay
type CompensationAgreement struct {
	ID                    string
	EmployeeID            string
	Salary                decimal.Decimal
	NightSurchargeEnabled bool
	WeekendDoubleOvertime bool
	Status                AgreementStatus
	StartDate             time.Time
	EndDate               *time.Time
	CreatedAt             time.Time
}

// BenefitFrequency enum
type BenefitFrequency string

const (
	BenefitOneTime   BenefitFrequency = "ONE_TIME"
	BenefitRecurring BenefitFrequency = "RECURRING"
)

// BenefitStatus enum
type BenefitStatus string

const (
	BenefitStatusActive    BenefitStatus = "ACTIVE"
	BenefitStatusProcessed BenefitStatus = "PROCESSED"
	BenefitStatusCancelled BenefitStatus = "CANCELLED"
)

// Benefit - individually assigned bonus
type Benefit struct {
	ID         string
	EmployeeID string
	Name       string
	Amount     decimal.Decimal
	Type       string
	Frequency  BenefitFrequency
	Status     BenefitStatus
	CreatedAt  time.Time
}

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft    RunStatus = "DRAFT"
	RunStatusApproved RunStatus = "APPROVED"
	RunStatusPaid     RunStatus = "PAID"
)

// PayrollRun - header of one period's payroll
type PayrollRun struct {
	ID          string
	Period      time.Time // first day of the month
	EndDate     time.Time
	TotalAmount decimal.Decimal
	Status      RunStatus
	PaymentDate *time.Time
	CreatedBy   string
	ApprovedBy  *string
	ApprovedAt  *time.Time
	PaidBy      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Lines []PayrollLine
}

// SourceKind tags where a bonus or deduction line came from.
type SourceKind string

const (
	SourcePayItem        SourceKind = "PAY_ITEM"
	SourceBenefit        SourceKind = "BENEFIT"
	SourceNightSurcharge SourceKind = "NIGHT_SURCHARGE"
	SourceUndertime      SourceKind = "UNDERTIME"
)

// LineItem is one bonus or deduction entry on a payroll line.
type LineItem struct {
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	SourceKind SourceKind        `json:"source_kind"`
	SourceID   *string           `json:"source_id,omitempty"`
	Frequency  *BenefitFrequency `json:"frequency,omitempty"`
}

// IsOneTimeBenefit reports whether the item consumes a ONE_TIME benefit on approval.
func (i LineItem) IsOneTimeBenefit() bool {
	return i.SourceKind == SourceBenefit && i.SourceID != nil &&
		i.Frequency != nil && *i.Frequency == BenefitOneTime
}

// PayrollLine - one employee's result within a run
type PayrollLine struct {
	ID             string
	RunID          string
	EmployeeID     string
	AgreementID    string
	BaseSalary     decimal.Decimal
	EarnedSalary   decimal.Decimal
	WorkedDays     int
	AbsentDays     int
	OvertimeHours  decimal.Decimal
	OvertimeAmount decimal.Decimal
	UndertimeHours decimal.Decimal
	NightHours     decimal.Decimal
	Bonuses        []LineItem
	Deductions     []LineItem
	NetSalary      decimal.Decimal
	Warnings       []string
	CreatedAt      time.Time
}

// Validate checks the configuration can drive a calculation.
func (c PayConfiguration) Validate() error {
	if c.WorkingDays <= 0 {
		return fmt.Errorf("%w: working days must be positive, got %d", ErrInvalidConfiguration, c.WorkingDays)
	}
	for _, item := range c.Items {
		if item.FixedAmount == nil && item.Percentage == nil {
			return fmt.Errorf("%w: pay item %q has neither a fixed amount nor a percentage", ErrInvalidConfiguration, item.Name)
		}
		if item.Kind != ItemKindEarning && item.Kind != ItemKindDeduction {
			return fmt.Errorf("%w: pay item %q has unknown kind %q", ErrInvalidConfiguration, item.Name, item.Kind)
		}
	}
	return nil
}
