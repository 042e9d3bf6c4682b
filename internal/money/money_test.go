package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.56, "R$1.234,56"},
		{0, "R$0,00"},
		{60375, "R$60.375,00"},
		{0.005, "R$0,01"},
		{-50, "-R$50,00"},
		{1234567.891, "R$1.234.567,89"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"R$ 1.234,56", 1234.56},
		{"R$1.234,56", 1234.56},
		{"1234,56", 1234.56},
		{"1234.56", 1234.56},
		{"1.234.567", 1234567},
		{"1.234", 1234},
		{"R$ 12.500", 12500},
		{"0.500", 0.5},
		{"1234.567", 1234.567},
		{"1.5", 1.5},
		{"-R$ 50,00", -50},
		{"  500000 ", 500000},
		{"", 0},
		{"abc", 0},
		{"1,2,3", 0},
		{"R$", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Parse(tt.in); got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"R$1.234,56", "R$0,99", "R$500.000,00"} {
		d, ok := ParseDecimal(s)
		if !ok {
			t.Fatalf("ParseDecimal(%q) failed", s)
		}
		if got := FormatDecimal(d); got != s {
			t.Errorf("FormatDecimal(ParseDecimal(%q)) = %q", s, got)
		}
	}
	if _, ok := ParseDecimal("x"); ok {
		t.Error("ParseDecimal(x) reported ok")
	}
	if got := FormatDecimal(decimal.RequireFromString("10.5")); got != "R$10,50" {
		t.Errorf("FormatDecimal(10.5) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(12.5, 1); got != "12,5%" {
		t.Errorf("FormatPercent(12.5, 1) = %q", got)
	}
	if got := FormatPercent(-100, 2); got != "-100,00%" {
		t.Errorf("FormatPercent(-100, 2) = %q", got)
	}
}
