package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

var (
	standardHoursPerDay       = decimal.NewFromInt(8)
	overtimeMultiplier        = decimal.RequireFromString("1.5")
	weekendOvertimeMultiplier = decimal.NewFromInt(2)
	nightSurchargeRate        = decimal.RequireFromString("0.25")
	secondsPerHour            = decimal.NewFromInt(3600)
)

const (
	nightStartHour = 19
	nightEndHour   = 6

	nightSurchargeName = "Recargo nocturno"
	undertimeName      = "Horas no laboradas"
)

// EmployeeInput is everything the calculator needs for one employee.
type EmployeeInput struct {
	Agreement  payroll.CompensationAgreement
	Attendance []attendance.Record
	Schedules  []schedule.Assignment
	Benefits   []payroll.Benefit
}

// Result keeps full precision. Line rounds it for storage.
type Result struct {
	EmployeeID      string
	AgreementID     string
	BaseSalary      decimal.Decimal
	AbsentDays      int
	WorkedDays      int
	SalaryPerDay    decimal.Decimal
	EarnedSalary    decimal.Decimal
	HourlyRate      decimal.Decimal
	OvertimeHours   decimal.Decimal
	OvertimeCost    decimal.Decimal
	UndertimeHours  decimal.Decimal
	UndertimeAmount decimal.Decimal
	NightHours      decimal.Decimal
	NightSurcharge  decimal.Decimal
	Bonuses         []payroll.LineItem
	Deductions      []payroll.LineItem
	NetSalary       decimal.Decimal
	FloorApplied    bool
	Warnings        []string
}

// Calculator computes one employee's pay. It holds no state besides the
// location used to place dates on the clock.
type Calculator struct {
	location *time.Location
}

func NewCalculator(location *time.Location) *Calculator {
	if location == nil {
		location = time.UTC
	}
	return &Calculator{location: location}
}

func (c *Calculator) Calculate(cfg payroll.PayConfiguration, in EmployeeInput) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	base := in.Agreement.Salary
	workingDays := decimal.NewFromInt(int64(cfg.WorkingDays))

	res := Result{
		EmployeeID:  in.Agreement.EmployeeID,
		AgreementID: in.Agreement.ID,
		BaseSalary:  base,
	}

	for _, rec := range in.Attendance {
		if rec.IsAbsence() {
			res.AbsentDays++
		}
	}
	res.WorkedDays = max(0, cfg.WorkingDays-res.AbsentDays)

	var err error
	if res.SalaryPerDay, err = money.Div(base, workingDays); err != nil {
		return Result{}, fmt.Errorf("salary per day: %w", err)
	}
	res.EarnedSalary = money.Mul(res.SalaryPerDay, decimal.NewFromInt(int64(res.WorkedDays)))
	if res.HourlyRate, err = money.Div(base, money.Mul(workingDays, standardHoursPerDay)); err != nil {
		return Result{}, fmt.Errorf("hourly rate: %w", err)
	}

	res.OvertimeHours = decimal.Zero
	res.OvertimeCost = decimal.Zero
	res.UndertimeHours = decimal.Zero
	res.NightHours = decimal.Zero

	for _, rec := range in.Attendance {
		expected := standardHoursPerDay
		if a, ok := schedule.Resolve(in.Schedules, rec.Date); ok {
			expected = a.Shift.ExpectedHours()
		}

		var overtime decimal.Decimal
		if rec.OvertimeHours != nil {
			overtime = *rec.OvertimeHours
		} else {
			overtime = money.Max(decimal.Zero, money.Sub(rec.WorkedHours, expected))
		}
		if overtime.IsPositive() {
			res.OvertimeHours = money.Add(res.OvertimeHours, overtime)
			cost := money.Mul(money.Mul(overtime, res.HourlyRate), c.overtimeMultiplier(in.Agreement, rec.Date))
			res.OvertimeCost = money.Add(res.OvertimeCost, cost)
		}

		if rec.WorkedHours.IsPositive() && rec.WorkedHours.LessThan(expected) {
			res.UndertimeHours = money.Add(res.UndertimeHours, money.Sub(expected, rec.WorkedHours))
		}

		if in.Agreement.NightSurchargeEnabled && rec.HasInterval() {
			res.NightHours = money.Add(res.NightHours, c.nightHours(rec))
		}
	}

	res.UndertimeAmount = money.Mul(res.UndertimeHours, res.HourlyRate)
	res.NightSurcharge = money.Mul(money.Mul(res.NightHours, res.HourlyRate), nightSurchargeRate)

	if res.NightSurcharge.IsPositive() {
		res.Bonuses = append(res.Bonuses, payroll.LineItem{
			Name:       nightSurchargeName,
			Amount:     res.NightSurcharge,
			SourceKind: payroll.SourceNightSurcharge,
		})
	}
	if res.UndertimeAmount.IsPositive() {
		res.Deductions = append(res.Deductions, payroll.LineItem{
			Name:       undertimeName,
			Amount:     res.UndertimeAmount,
			SourceKind: payroll.SourceUndertime,
		})
	}

	for _, item := range cfg.Items {
		line := payroll.LineItem{
			Name:       item.Name,
			Amount:     payItemAmount(item, res.EarnedSalary),
			SourceKind: payroll.SourcePayItem,
		}
		if item.ID != "" {
			id := item.ID
			line.SourceID = &id
		}
		if item.Kind == payroll.ItemKindEarning {
			res.Bonuses = append(res.Bonuses, line)
		} else {
			res.Deductions = append(res.Deductions, line)
		}
	}

	for _, b := range in.Benefits {
		if b.Status != payroll.BenefitStatusActive {
			continue
		}
		id, freq := b.ID, b.Frequency
		res.Bonuses = append(res.Bonuses, payroll.LineItem{
			Name:       b.Name,
			Amount:     b.Amount,
			SourceKind: payroll.SourceBenefit,
			SourceID:   &id,
			Frequency:  &freq,
		})
	}

	// Undertime is carried in Deductions, so it is subtracted exactly once here.
	net := money.Sum(res.EarnedSalary, res.OvertimeCost, sumItems(res.Bonuses))
	net = money.Sub(net, sumItems(res.Deductions))
	if net.IsNegative() {
		res.FloorApplied = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("net salary %s floored at zero", money.Format(net)))
		net = decimal.Zero
	}
	res.NetSalary = net

	return res, nil
}

func (c *Calculator) overtimeMultiplier(agreement payroll.CompensationAgreement, date time.Time) decimal.Decimal {
	if agreement.WeekendDoubleOvertime && c.isWeekend(date) {
		return weekendOvertimeMultiplier
	}
	return overtimeMultiplier
}

func (c *Calculator) isWeekend(date time.Time) bool {
	y, m, d := date.Date()
	switch time.Date(y, m, d, 0, 0, 0, 0, c.location).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// nightHours overlaps the worked interval with the nocturnal windows of the
// record's date: 00:00-06:00 and 19:00-24:00. Hours after midnight of a
// shift that started the day before do not count.
func (c *Calculator) nightHours(rec attendance.Record) decimal.Decimal {
	y, m, d := rec.Date.Date()
	windows := [][2]time.Time{
		{time.Date(y, m, d, 0, 0, 0, 0, c.location), time.Date(y, m, d, nightEndHour, 0, 0, 0, c.location)},
		{time.Date(y, m, d, nightStartHour, 0, 0, 0, c.location), time.Date(y, m, d+1, 0, 0, 0, 0, c.location)},
	}

	var total time.Duration
	for _, w := range windows {
		total += overlap(*rec.CheckIn, *rec.CheckOut, w[0], w[1])
	}
	return decimal.NewFromInt(int64(total / time.Second)).Div(secondsPerHour)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func payItemAmount(item payroll.PayItem, earned decimal.Decimal) decimal.Decimal {
	if item.FixedAmount != nil {
		return *item.FixedAmount
	}
	return money.Percentage(earned, *item.Percentage)
}

func sumItems(items []payroll.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, i := range items {
		total = money.Add(total, i.Amount)
	}
	return total
}

// Line converts the result into a storable line, rounding every amount.
func (r Result) Line(id, runID string, createdAt time.Time) payroll.PayrollLine {
	return payroll.PayrollLine{
		ID:             id,
		RunID:          runID,
		EmployeeID:     r.EmployeeID,
		AgreementID:    r.AgreementID,
		BaseSalary:     money.RoundMoney(r.BaseSalary),
		EarnedSalary:   money.RoundMoney(r.EarnedSalary),
		WorkedDays:     r.WorkedDays,
		AbsentDays:     r.AbsentDays,
		OvertimeHours:  money.RoundMoney(r.OvertimeHours),
		OvertimeAmount: money.RoundMoney(r.OvertimeCost),
		UndertimeHours: money.RoundMoney(r.UndertimeHours),
		NightHours:     money.RoundMoney(r.NightHours),
		Bonuses:        roundItems(r.Bonuses),
		Deductions:     roundItems(r.Deductions),
		NetSalary:      money.RoundMoney(r.NetSalary),
		Warnings:       r.Warnings,
		CreatedAt:      createdAt,
	}
}

func roundItems(items []payroll.LineItem) []payroll.LineItem {
	out := make([]payroll.LineItem, len(items))
	for i, item := range items {
		item.Amount = money.RoundMoney(item.Amount)
		out[i] = item
	}
	return out
}
