package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(h, m int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestShift_ExpectedHours(t *testing.T) {
	tests := []struct {
		name  string
		shift Shift
		want  string
	}{
		{"day shift with lunch", Shift{StartTime: clock(8, 0), EndTime: clock(17, 0), BreakMinutes: 60}, "8"},
		{"night shift wraps midnight", Shift{StartTime: clock(22, 0), EndTime: clock(6, 0), BreakMinutes: 30}, "7.5"},
		{"break longer than shift", Shift{StartTime: clock(9, 0), EndTime: clock(10, 0), BreakMinutes: 90}, "0"},
		{"half hour granularity", Shift{StartTime: clock(9, 30), EndTime: clock(14, 0)}, "4.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shift.ExpectedHours().String())
		})
	}
}

func TestAssignment_Covers(t *testing.T) {
	end := day(2024, 3, 15)
	a := Assignment{StartDate: day(2024, 3, 1), EndDate: &end}

	assert.True(t, a.Covers(day(2024, 3, 1)))
	assert.True(t, a.Covers(time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)))
	assert.False(t, a.Covers(day(2024, 3, 16)))
	assert.False(t, a.Covers(day(2024, 2, 29)))

	openEnded := Assignment{StartDate: day(2024, 3, 1)}
	assert.True(t, openEnded.Covers(day(2030, 1, 1)))
}

func TestResolve_MostRecentlyCreatedWins(t *testing.T) {
	older := Assignment{ID: "older", Active: true, StartDate: day(2024, 1, 1), CreatedAt: day(2024, 1, 1)}
	newer := Assignment{ID: "newer", Active: true, StartDate: day(2024, 3, 10), CreatedAt: day(2024, 3, 1)}
	inactive := Assignment{ID: "inactive", Active: false, StartDate: day(2024, 1, 1), CreatedAt: day(2024, 4, 1)}

	got, ok := Resolve([]Assignment{newer, older, inactive}, day(2024, 3, 12))
	assert.True(t, ok)
	assert.Equal(t, "newer", got.ID)

	got, ok = Resolve([]Assignment{newer, older, inactive}, day(2024, 3, 5))
	assert.True(t, ok)
	assert.Equal(t, "older", got.ID)

	_, ok = Resolve([]Assignment{inactive}, day(2024, 3, 5))
	assert.False(t, ok)
}
