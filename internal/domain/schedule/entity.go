package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

const hoursPerDay = 24 * time.Hour

// Shift times are offsets from midnight.
type Shift struct {
	ID               string
	Name             string
	StartTime        time.Duration
	EndTime          time.Duration
	ToleranceMinutes int
	BreakMinutes     int
}

// Duration is the span from start to end, wrapping past midnight when end < start.
func (s Shift) Duration() time.Duration {
	d := s.EndTime - s.StartTime
	if d < 0 {
		d += hoursPerDay
	}
	return d
}

// ExpectedHours is the shift duration minus the break, never negative.
func (s Shift) ExpectedHours() decimal.Decimal {
	worked := s.Duration() - time.Duration(s.BreakMinutes)*time.Minute
	if worked < 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(worked / time.Minute)).Div(decimal.NewFromInt(60))
}

type Assignment struct {
	ID         string
	EmployeeID string
	Shift      Shift
	StartDate  time.Time
	EndDate    *time.Time
	Active     bool
	CreatedAt  time.Time
}

// Covers reports whether date falls inside the assignment's validity window.
// Only the calendar day of each value is compared.
func (a Assignment) Covers(date time.Time) bool {
	d := dateOnly(date)
	if d.Before(dateOnly(a.StartDate)) {
		return false
	}
	return a.EndDate == nil || !d.After(dateOnly(*a.EndDate))
}

// Resolve returns the active assignment covering date. When windows overlap
// the most recently created assignment wins.
func Resolve(assignments []Assignment, date time.Time) (Assignment, bool) {
	var (
		best  Assignment
		found bool
	)
	for _, a := range assignments {
		if !a.Active || !a.Covers(date) {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best = a
			found = true
		}
	}
	return best, found
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
