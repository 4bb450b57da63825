package payroll

import (
	"fmt"
	"time"
)

// Period identifies one payroll run by calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod accepts any month of a four-digit year.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("%w: month=%d year=%d", ErrInvalidPeriod, month, year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Start is the first day of the month at 00:00 UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the month at 00:00 UTC.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

func (p Period) Previous() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// String returns the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Memo is the transfer description used in bank files.
func (p Period) Memo() string {
	return fmt.Sprintf("Pago nomina %02d/%04d", int(p.Month), p.Year)
}
