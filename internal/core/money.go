// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimals at full precision. The business shows
// three fractional digits (the currency subunit), so formatting rounds to
// AmountScale places while comparisons never do.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits shown for money.
const AmountScale = 3

// Bounds on accepted amounts. Exponent notation is never accepted.
const (
	maxAmountLength   = 40
	maxAmountExponent = 18
	maxAmountFloat    = 1e15
)

// ParseAmount converts a loosely formatted amount into a decimal.
//
// Whitespace is dropped and a decimal comma is accepted. When more than one
// dot remains, every dot but the last is a thousands separator:
//
//	ParseAmount("12,5")       -> 12.5
//	ParseAmount("1 250.750")  -> 1250.75
//	ParseAmount("13.246.000") -> 13246.0
//
// Empty, non-numeric or out-of-bounds input yields zero; it never fails.
func ParseAmount(s string) decimal.Decimal {
	d, _ := TryParseAmount(s)
	return d
}

// TryParseAmount is ParseAmount reporting whether the input held a number.
// Blank input reports false.
func TryParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}
	if len(s) > maxAmountLength || strings.ContainsAny(s, "eE") {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if parts := strings.Split(s, "."); len(parts) > 2 {
		last := len(parts) - 1
		s = strings.Join(parts[:last], "") + "." + parts[last]
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !inBounds(d) {
		return decimal.Zero, false
	}
	return d, true
}

// AmountFrom converts a decoded JSON value (number, string or null) into a
// decimal, defaulting to zero.
func AmountFrom(v any) decimal.Decimal {
	d, _ := TryAmountFrom(v)
	return d
}

// TryAmountFrom is AmountFrom reporting whether v was usable. Null and blank
// strings count as zero; anything else that does not parse, or falls
// outside the accepted bounds, reports false.
func TryAmountFrom(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, true
	case json.Number:
		return TryParseAmount(x.String())
	case string:
		if strings.TrimSpace(x) == "" {
			return decimal.Zero, true
		}
		return TryParseAmount(x)
	case float64:
		if math.IsNaN(x) || math.Abs(x) >= maxAmountFloat {
			return decimal.Zero, false
		}
		d := decimal.NewFromFloat(x)
		if !inBounds(d) {
			return decimal.Zero, false
		}
		return d, true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case decimal.Decimal:
		if !inBounds(x) {
			return decimal.Zero, false
		}
		return x, true
	default:
		return decimal.Zero, false
	}
}

// ParseQuantity parses a caller-supplied quantity strictly: malformed input
// and negative values are errors, not defaults.
func ParseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if len(s) > maxAmountLength || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || !inBounds(d) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeQuantity, d)
	}
	return d, nil
}

func inBounds(d decimal.Decimal) bool {
	e := d.Exponent()
	return e >= -maxAmountExponent && e <= maxAmountExponent
}

// FormatAmount renders an amount with AmountScale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// Sum adds up the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
