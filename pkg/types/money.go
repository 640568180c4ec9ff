package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents) that renders as a two-decimal
// JSON number.
type Money int64

// MoneyFromCents converts a cent total to Money.
func MoneyFromCents(cents int64) Money {
	return Money(cents)
}

// MoneyFromDecimal converts a decimal currency amount to Money. Fractions
// below one cent are rejected rather than rounded.
func MoneyFromDecimal(amount decimal.Decimal) (Money, error) {
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount.String())
	}
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) || cents.LessThan(decimal.NewFromInt(-maxCents)) {
		return 0, fmt.Errorf("amount %s out of range", amount.String())
	}
	return Money(cents.IntPart()), nil
}

const maxCents = int64(1) << 53

// Cents returns the minor-unit value.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in major currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Shift(-2)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON emits the amount as an unquoted two-decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	parsed, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
