package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriod(t *testing.T) {
	tests := []struct {
		name    string
		month   int
		year    int
		wantErr bool
	}{
		{"regular month", 3, 2024, false},
		{"early year", 1, 1999, false},
		{"far year", 12, 2150, false},
		{"month zero", 0, 2024, true},
		{"month thirteen", 13, 2024, true},
		{"year zero", 6, 0, true},
		{"five digit year", 6, 10000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPeriod(tt.month, tt.year)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Period{Year: tt.year, Month: time.Month(tt.month)}, p)
		})
	}
}

func TestGenerateRunRequest_Validate(t *testing.T) {
	assert.NoError(t, (&GenerateRunRequest{Month: 2, Year: 1999}).Validate())
	assert.NoError(t, (&GenerateRunRequest{Month: 2, Year: 2150}).Validate())
	assert.Error(t, (&GenerateRunRequest{Month: 2, Year: 0}).Validate())
	assert.Error(t, (&GenerateRunRequest{Month: 0, Year: 2024}).Validate())
}

func TestPeriod_Bounds(t *testing.T) {
	p := Period{Year: 2024, Month: time.February}

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, Period{Year: 2024, Month: time.January}, p.Previous())
	assert.Equal(t, "2024-02", p.String())
	assert.Equal(t, "Pago nomina 02/2024", p.Memo())
}
