// Package money wraps shopspring/decimal with the handful of operations the
// payroll engine needs. Nothing in here rounds unless Round is called.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places used for persisted and displayed amounts.
const Scale int32 = 2

var ErrDivisionByZero = errors.New("division by zero")

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

func Sub(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b)
}

// Div divides a by b using decimal.DivisionPrecision digits.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.Div(b), nil
}

// Percentage returns pct percent of amount, e.g. Percentage(200, 9.45) = 18.9.
func Percentage(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Round rounds half away from zero to the given number of places.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// RoundMoney rounds to Scale places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Format renders d with exactly Scale decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
