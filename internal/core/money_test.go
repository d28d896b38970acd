package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"abc", "0"},
		{"0", "0"},
		{"150", "150"},
		{"12,5", "12.5"},
		{" 1 250.750 ", "1250.75"},
		{"13.246.000", "13246"},
		{"1.234,5", "1234.5"},
		{"-7.25", "-7.25"},
		{"0.001", "0.001"},
		{"1e9", "0"},
		{"1E900000000", "0"},
		{"1e-900000000", "0"},
		{"0.0000000000000000000001", "0"},
		{"1234567890123456789012345678901234567890123", "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestAmountFrom(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "0"},
		{json.Number("42.5"), "42.5"},
		{"3,25", "3.25"},
		{float64(2), "2"},
		{7, "7"},
		{true, "0"},
		{map[string]any{}, "0"},
		{json.Number("1e900000000"), "0"},
		{float64(1e300), "0"},
		{float64(1e-300), "0"},
	}
	for i, tc := range cases {
		got := AmountFrom(tc.in)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("case %d: AmountFrom(%v) = %s, want %s", i, tc.in, got, tc.want)
		}
	}
}

func TestTryAmountFrom(t *testing.T) {
	cases := []struct {
		in any
		ok bool
	}{
		{nil, true},
		{"", true},
		{"12,5", true},
		{json.Number("3"), true},
		{float64(0.5), true},
		{"abc", false},
		{"1e9", false},
		{"1E900000000", false},
		{"1e-900000000", false},
		{json.Number("1e900000000"), false},
		{float64(1e300), false},
		{true, false},
	}
	for i, tc := range cases {
		d, ok := TryAmountFrom(tc.in)
		if ok != tc.ok {
			t.Fatalf("case %d: TryAmountFrom(%v) ok = %v, want %v", i, tc.in, ok, tc.ok)
		}
		if !ok && !d.IsZero() {
			t.Fatalf("case %d: rejected value should be zero, got %s", i, d)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if q, err := ParseQuantity("2,5"); err != nil || !q.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("ParseQuantity(2,5) = %s, %v", q, err)
	}
	if q, err := ParseQuantity(""); err != nil || !q.IsZero() {
		t.Fatalf("empty quantity should be zero, got %s, %v", q, err)
	}
	if _, err := ParseQuantity("-1"); !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
	for _, in := range []string{"two", "1e9", "1E900000000", "1e-900000000"} {
		if _, err := ParseQuantity(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseQuantity(%q): expected ErrInvalidAmount, got %v", in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("12.5")); got != "12.500" {
		t.Fatalf("FormatAmount = %q", got)
	}
	if got := FormatAmount(decimal.RequireFromString("0.0005")); got != "0.001" {
		t.Fatalf("FormatAmount rounding = %q", got)
	}
}
