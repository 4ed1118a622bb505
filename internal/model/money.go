package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored for every amount.
const MoneyScale = 2

// ErrInvalidMoney indicates an amount that cannot be represented exactly.
var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney parses a base-10 amount such as "12.50" or "-3".
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidMoney)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidMoney, s, MoneyScale)
	}
	return d, nil
}

// ToMinorUnits converts d into an integer count of minor units (cents).
// It fails instead of rounding when d carries more precision than MoneyScale.
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	if !d.Equal(d.Round(MoneyScale)) {
		return 0, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidMoney, d.String(), MoneyScale)
	}
	shifted := d.Shift(MoneyScale)
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidMoney, d.String())
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -MoneyScale)
}

// FormatMoney renders d with exactly MoneyScale fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
