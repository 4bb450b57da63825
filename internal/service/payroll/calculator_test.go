package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2400 / (30 * 8) gives an hourly rate of exactly 10.
var tenPerHour = money.MustParse("2400")

func dec(s string) decimal.Decimal { return money.MustParse(s) }

func decPtr(s string) *decimal.Decimal {
	d := money.MustParse(s)
	return &d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h, min int) *time.Time {
	t := time.Date(y, m, d, h, min, 0, 0, time.UTC)
	return &t
}

func config(workingDays int, items ...payroll.PayItem) payroll.PayConfiguration {
	return payroll.PayConfiguration{ID: "cfg-1", Version: 1, WorkingDays: workingDays, Active: true, Items: items}
}

func agreement(salary decimal.Decimal) payroll.CompensationAgreement {
	return payroll.CompensationAgreement{
		ID:         "agr-1",
		EmployeeID: "emp-1",
		Salary:     salary,
		Status:     payroll.AgreementStatusActive,
		StartDate:  date(2023, 1, 1),
	}
}

func present(d time.Time, worked string) attendance.Record {
	return attendance.Record{EmployeeID: "emp-1", Date: d, WorkedHours: dec(worked), Status: attendance.StatusPresent}
}

func findItem(items []payroll.LineItem, kind payroll.SourceKind) (payroll.LineItem, bool) {
	for _, i := range items {
		if i.SourceKind == kind {
			return i, true
		}
	}
	return payroll.LineItem{}, false
}

func TestCalculate_ProratesSalaryForAbsences(t *testing.T) {
	calc := NewCalculator(time.UTC)
	in := EmployeeInput{
		Agreement: agreement(dec("1234.56")),
		Attendance: []attendance.Record{
			{EmployeeID: "emp-1", Date: date(2024, 3, 4), Status: attendance.StatusAbsent},
		},
	}

	res, err := calc.Calculate(config(30), in)
	require.NoError(t, err)

	assert.Equal(t, 1, res.AbsentDays)
	assert.Equal(t, 29, res.WorkedDays)
	assert.Equal(t, "1193.408", res.EarnedSalary.String())
	assert.Equal(t, "5.144", res.HourlyRate.String())

	line := res.Line("line-1", "run-1", time.Now())
	assert.Equal(t, "1193.41", money.Format(line.EarnedSalary))
}

func TestCalculate_WorkedDaysNeverNegative(t *testing.T) {
	calc := NewCalculator(time.UTC)
	var records []attendance.Record
	for d := 1; d <= 5; d++ {
		records = append(records, attendance.Record{Date: date(2024, 3, d), Status: attendance.StatusAbsent})
	}

	res, err := calc.Calculate(config(3), EmployeeInput{Agreement: agreement(tenPerHour), Attendance: records})
	require.NoError(t, err)
	assert.Equal(t, 0, res.WorkedDays)
	assert.True(t, res.EarnedSalary.IsZero())
}

func TestCalculate_PercentagePayItem(t *testing.T) {
	calc := NewCalculator(time.UTC)
	cfg := config(30, payroll.PayItem{ID: "ss", Name: "Aporte personal", Kind: payroll.ItemKindDeduction, Mandatory: true, Percentage: decPtr("9.45")})
	in := EmployeeInput{
		Agreement:  agreement(dec("1234.56")),
		Attendance: []attendance.Record{{Date: date(2024, 3, 4), Status: attendance.StatusAbsent}},
	}

	res, err := calc.Calculate(cfg, in)
	require.NoError(t, err)

	line := res.Line("line-1", "run-1", time.Now())
	require.Len(t, line.Deductions, 1)
	assert.Equal(t, "112.78", money.Format(line.Deductions[0].Amount))
	assert.Equal(t, payroll.SourcePayItem, line.Deductions[0].SourceKind)
	require.NotNil(t, line.Deductions[0].SourceID)
	assert.Equal(t, "ss", *line.Deductions[0].SourceID)
}

func TestCalculate_OvertimeMultiplier(t *testing.T) {
	saturday := date(2024, 3, 2)
	monday := date(2024, 3, 4)

	tests := []struct {
		name         string
		day          time.Time
		doubleOnWknd bool
		want         string
	}{
		{"saturday with double overtime", saturday, true, "40.00"},
		{"weekday with double overtime", monday, true, "30.00"},
		{"saturday without double overtime", saturday, false, "30.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agr := agreement(tenPerHour)
			agr.WeekendDoubleOvertime = tt.doubleOnWknd
			rec := present(tt.day, "10")
			rec.OvertimeHours = decPtr("2")

			res, err := NewCalculator(time.UTC).Calculate(config(30), EmployeeInput{Agreement: agr, Attendance: []attendance.Record{rec}})
			require.NoError(t, err)
			assert.Equal(t, "2", res.OvertimeHours.String())
			assert.Equal(t, tt.want, money.Format(res.OvertimeCost))
		})
	}
}

func TestCalculate_OvertimeDerivedFromShift(t *testing.T) {
	shift := schedule.Shift{StartTime: 8 * time.Hour, EndTime: 17 * time.Hour, BreakMinutes: 60}
	assignments := []schedule.Assignment{
		{ID: "asg-1", EmployeeID: "emp-1", Shift: shift, StartDate: date(2024, 1, 1), Active: true},
	}
	in := EmployeeInput{
		Agreement:  agreement(tenPerHour),
		Attendance: []attendance.Record{present(date(2024, 3, 5), "10.5")},
		Schedules:  assignments,
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), in)
	require.NoError(t, err)
	assert.Equal(t, "2.5", res.OvertimeHours.String())
	assert.Equal(t, "37.50", money.Format(res.OvertimeCost))
}

func TestCalculate_DefaultsToEightHoursWithoutSchedule(t *testing.T) {
	in := EmployeeInput{
		Agreement:  agreement(tenPerHour),
		Attendance: []attendance.Record{present(date(2024, 3, 5), "9")},
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), in)
	require.NoError(t, err)
	assert.Equal(t, "1", res.OvertimeHours.String())
	assert.True(t, res.UndertimeHours.IsZero())
}

func TestCalculate_Undertime(t *testing.T) {
	in := EmployeeInput{
		Agreement: agreement(tenPerHour),
		Attendance: []attendance.Record{
			present(date(2024, 3, 5), "6"),
			{Date: date(2024, 3, 6), Status: attendance.StatusAbsent},
		},
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), in)
	require.NoError(t, err)
	assert.Equal(t, "2", res.UndertimeHours.String())
	assert.Equal(t, "20.00", money.Format(res.UndertimeAmount))

	item, ok := findItem(res.Deductions, payroll.SourceUndertime)
	require.True(t, ok)
	assert.Equal(t, "20.00", money.Format(item.Amount))
	assert.Nil(t, item.SourceID)
}

func TestCalculate_NightSurcharge(t *testing.T) {
	agr := agreement(tenPerHour)
	agr.NightSurchargeEnabled = true

	in := EmployeeInput{
		Agreement: agr,
		Attendance: []attendance.Record{
			// 19:00-23:00 is nocturnal, 4 hours
			{Date: date(2024, 3, 5), CheckIn: at(2024, 3, 5, 15, 0), CheckOut: at(2024, 3, 5, 23, 0), WorkedHours: dec("8"), Status: attendance.StatusPresent},
			// 04:00-06:00 is nocturnal, 2 hours
			{Date: date(2024, 3, 6), CheckIn: at(2024, 3, 6, 4, 0), CheckOut: at(2024, 3, 6, 12, 0), WorkedHours: dec("8"), Status: attendance.StatusPresent},
		},
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), in)
	require.NoError(t, err)
	assert.Equal(t, "6", res.NightHours.String())
	assert.Equal(t, "15.00", money.Format(res.NightSurcharge))

	item, ok := findItem(res.Bonuses, payroll.SourceNightSurcharge)
	require.True(t, ok)
	assert.Equal(t, "15.00", money.Format(item.Amount))
}

func TestCalculate_NightShiftPastMidnight(t *testing.T) {
	tests := []struct {
		name      string
		checkIn   *time.Time
		checkOut  *time.Time
		wantHours string
		wantBonus string
	}{
		{"22 to 07 next day", at(2024, 3, 5, 22, 0), at(2024, 3, 6, 7, 0), "2", "5.00"},
		{"23 to 05 next day", at(2024, 3, 5, 23, 0), at(2024, 3, 6, 5, 0), "1", "2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agr := agreement(tenPerHour)
			agr.NightSurchargeEnabled = true
			rec := attendance.Record{
				Date: date(2024, 3, 5), CheckIn: tt.checkIn, CheckOut: tt.checkOut,
				WorkedHours: dec("8"), Status: attendance.StatusPresent,
			}

			res, err := NewCalculator(time.UTC).Calculate(config(30), EmployeeInput{Agreement: agr, Attendance: []attendance.Record{rec}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, res.NightHours.String())

			item, ok := findItem(res.Bonuses, payroll.SourceNightSurcharge)
			require.True(t, ok)
			assert.Equal(t, tt.wantBonus, item.Amount.StringFixed(2))
		})
	}
}

func TestCalculate_NightSurchargeDisabled(t *testing.T) {
	rec := attendance.Record{
		Date: date(2024, 3, 5), CheckIn: at(2024, 3, 5, 19, 0), CheckOut: at(2024, 3, 5, 23, 0),
		WorkedHours: dec("4"), Status: attendance.StatusPresent,
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), EmployeeInput{Agreement: agreement(tenPerHour), Attendance: []attendance.Record{rec}})
	require.NoError(t, err)
	assert.True(t, res.NightHours.IsZero())
	_, ok := findItem(res.Bonuses, payroll.SourceNightSurcharge)
	assert.False(t, ok)
}

func TestCalculate_BenefitsBecomeTaggedBonuses(t *testing.T) {
	in := EmployeeInput{
		Agreement: agreement(tenPerHour),
		Benefits: []payroll.Benefit{
			{ID: "ben-1", EmployeeID: "emp-1", Name: "Bono navidad", Amount: dec("150"), Frequency: payroll.BenefitOneTime, Status: payroll.BenefitStatusActive},
			{ID: "ben-2", EmployeeID: "emp-1", Name: "Movilizacion", Amount: dec("40"), Frequency: payroll.BenefitRecurring, Status: payroll.BenefitStatusActive},
			{ID: "ben-3", EmployeeID: "emp-1", Name: "Cancelado", Amount: dec("999"), Frequency: payroll.BenefitOneTime, Status: payroll.BenefitStatusCancelled},
		},
	}

	res, err := NewCalculator(time.UTC).Calculate(config(30), in)
	require.NoError(t, err)
	require.Len(t, res.Bonuses, 2)

	assert.Equal(t, "ben-1", *res.Bonuses[0].SourceID)
	assert.True(t, res.Bonuses[0].IsOneTimeBenefit())
	assert.Equal(t, "ben-2", *res.Bonuses[1].SourceID)
	assert.False(t, res.Bonuses[1].IsOneTimeBenefit())
	assert.Equal(t, "2590.00", money.Format(res.NetSalary))
}

func TestCalculate_NetSalaryFormula(t *testing.T) {
	monday := present(date(2024, 3, 4), "10")
	monday.OvertimeHours = decPtr("2")
	cfg := config(30,
		payroll.PayItem{Name: "Bono fijo", Kind: payroll.ItemKindEarning, FixedAmount: decPtr("100")},
		payroll.PayItem{Name: "Retencion", Kind: payroll.ItemKindDeduction, Percentage: decPtr("10")},
	)
	in := EmployeeInput{
		Agreement:  agreement(tenPerHour),
		Attendance: []attendance.Record{monday, present(date(2024, 3, 5), "6")},
		Benefits: []payroll.Benefit{
			{ID: "ben-1", Name: "Bono", Amount: dec("50"), Frequency: payroll.BenefitRecurring, Status: payroll.BenefitStatusActive},
		},
	}

	res, err := NewCalculator(time.UTC).Calculate(cfg, in)
	require.NoError(t, err)

	// 2400 + 30 overtime - 20 undertime + 100 + 50 - 240
	assert.Equal(t, "2320.00", money.Format(res.NetSalary))
	assert.False(t, res.FloorApplied)
	assert.Empty(t, res.Warnings)
}

func TestCalculate_FloorsNetAtZeroWithWarning(t *testing.T) {
	cfg := config(30, payroll.PayItem{Name: "Prestamo", Kind: payroll.ItemKindDeduction, FixedAmount: decPtr("5000")})

	res, err := NewCalculator(time.UTC).Calculate(cfg, EmployeeInput{Agreement: agreement(tenPerHour)})
	require.NoError(t, err)

	assert.True(t, res.NetSalary.IsZero())
	assert.True(t, res.FloorApplied)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "-2600.00")
}

func TestCalculate_InvalidConfiguration(t *testing.T) {
	calc := NewCalculator(time.UTC)

	_, err := calc.Calculate(config(0), EmployeeInput{Agreement: agreement(tenPerHour)})
	assert.ErrorIs(t, err, payroll.ErrInvalidConfiguration)

	_, err = calc.Calculate(config(30, payroll.PayItem{Name: "Vacio", Kind: payroll.ItemKindEarning}), EmployeeInput{Agreement: agreement(tenPerHour)})
	assert.ErrorIs(t, err, payroll.ErrInvalidConfiguration)
}

func TestResult_LineRoundsEveryAmount(t *testing.T) {
	res := Result{
		EmployeeID:   "emp-1",
		BaseSalary:   dec("1234.56"),
		EarnedSalary: dec("1193.408"),
		OvertimeCost: dec("10.005"),
		Bonuses:      []payroll.LineItem{{Name: "b", Amount: dec("1.115"), SourceKind: payroll.SourcePayItem}},
		NetSalary:    dec("1204.528"),
	}

	line := res.Line("line-1", "run-1", time.Now())
	assert.Equal(t, "1193.41", line.EarnedSalary.String())
	assert.Equal(t, "10.01", line.OvertimeAmount.String())
	assert.Equal(t, "1.12", line.Bonuses[0].Amount.String())
	assert.Equal(t, "1204.53", line.NetSalary.String())
	assert.Equal(t, "1.115", res.Bonuses[0].Amount.String(), "result keeps full precision")
}
