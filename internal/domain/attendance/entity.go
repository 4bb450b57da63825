package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
	StatusAbsent  Status = "ABSENT"
)

// Record - one employee's attendance for one day
type Record struct {
	ID            string
	EmployeeID    string
	Date          time.Time
	CheckIn       *time.Time
	CheckOut      *time.Time
	WorkedHours   decimal.Decimal
	OvertimeHours *decimal.Decimal // explicit override, nil when not recorded
	Status        Status
	CreatedAt     time.Time
}

// IsAbsence reports a full-day absence.
func (r Record) IsAbsence() bool {
	return r.Status == StatusAbsent
}

// HasInterval reports whether both timestamps are present and ordered.
func (r Record) HasInterval() bool {
	return r.CheckIn != nil && r.CheckOut != nil && r.CheckOut.After(*r.CheckIn)
}
