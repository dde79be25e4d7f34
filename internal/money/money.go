// Package money implements fixed-point monetary arithmetic in minor units.
//
// All ledger math happens on int64 cents so that share sums reconcile exactly
// to expense totals. decimal.Decimal appears only at the conversion boundary;
// floats never carry money.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a decimal cannot be represented as a
// whole number of cents or is out of range.
var ErrInvalidAmount = errors.New("invalid monetary amount")

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor currency units (cents). The zero value is zero
// cents. Money is signed; the ledger stores non-negative amounts but net
// balances may be negative.
type Money struct {
	Cents int64
}

// FromCents returns the amount worth the given number of cents.
func FromCents(cents int64) Money {
	return Money{Cents: cents}
}

// FromDecimal converts a decimal amount to cents. Amounts with more than two
// fractional digits are rejected rather than silently rounded: callers supply
// money, not computation results.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s has sub-cent precision", ErrInvalidAmount, d)
	}
	if !cents.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as a two-decimal value for the boundary.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(other Money) Money { return Money{Cents: m.Cents + other.Cents} }
func (m Money) Sub(other Money) Money { return Money{Cents: m.Cents - other.Cents} }
func (m Money) Neg() Money { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) LessThan(o Money) bool { return m.Cents < o.Cents }
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a.Cents < b.Cents {
		return a
	}
	return b
}

// SplitEven divides m into n parts that sum exactly to m. The first n-1 parts
// are m/n rounded down to the cent; the last part absorbs the remainder. The
// caller decides which participant takes the last slot.
func (m Money) SplitEven(n int) []Money {
	if n <= 0 {
		return nil
	}
	base := m.Cents / int64(n)
	parts := make([]Money, n)
	for i := range parts {
		parts[i] = Money{Cents: base}
	}
	parts[n-1] = Money{Cents: m.Cents - base*int64(n-1)}
	return parts
}

// Allocate distributes m across the given percentages, which are expected to
// sum to 100. Every part except the last is round(pct/100 * m) half-up; the
// last part is the residual, so the parts always sum exactly to m.
func (m Money) Allocate(percents []float64) []Money {
	if len(percents) == 0 {
		return nil
	}
	parts := make([]Money, len(percents))
	var assigned int64
	total := decimal.NewFromInt(m.Cents)
	for i, pct := range percents[:len(percents)-1] {
		cents := total.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(0).IntPart()
		parts[i] = Money{Cents: cents}
		assigned += cents
	}
	parts[len(parts)-1] = Money{Cents: m.Cents - assigned}
	return parts
}
