package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const unitDecimals int32 = 18 // base units per whole unit, as 10^18

// ParseUnits converts a whole-unit decimal string ("1.000000000000000001") into base units.
// More than unitDecimals fractional digits cannot be represented and are rejected.
func ParseUnits(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	base := d.Shift(unitDecimals)
	if !base.IsInteger() {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, unitDecimals)
	}
	return base, nil
}

// MustParseUnits is ParseUnits for constants and tests.
func MustParseUnits(s string) Amount {
	a, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatUnits renders base units as a whole-unit decimal string without trailing zeros.
func FormatUnits(a Amount) string {
	return a.Shift(-unitDecimals).String()
}

// Units returns n whole units in base units.
func Units(n int64) Amount {
	return decimal.NewFromInt(n).Shift(unitDecimals)
}

// validAmount reports whether a is a strictly positive whole number of base units.
func validAmount(a Amount) bool {
	return a.IsPositive() && a.IsInteger()
}
