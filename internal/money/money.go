// Package money converts between amounts and their Brazilian real text form.
package money

import (
	"regexp"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code every amount is expressed in.
const Currency = gomoney.BRL

// Format renders v as "R$1.234,56", rounded to cents. Negative amounts get a
// leading minus sign.
func Format(v float64) string {
	return FormatDecimal(decimal.NewFromFloat(v))
}

// FormatDecimal is Format for exact amounts.
func FormatDecimal(d decimal.Decimal) string {
	cur := gomoney.GetCurrency(Currency)
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// Parse reads an amount typed by a user: "R$ 1.234,56", "1234,56", "1234.56"
// and "1.234.567" are all accepted. Anything unparsable is 0.
func Parse(s string) float64 {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// thousandsOnly matches a number grouped by a single dot, "1.234" or
// "12.500", which pt-BR input means as a whole amount.
var thousandsOnly = regexp.MustCompile(`^[1-9]\d{0,2}\.\d{3}$`)

// ParseDecimal is Parse keeping full precision. ok is false for unparsable
// input. Without a comma, a lone dot followed by exactly three digits groups
// thousands ("1.234" is 1234); any other lone dot is a decimal point
// ("1234.5", "0.500").
func ParseDecimal(s string) (d decimal.Decimal, ok bool) {
	raw := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "R$")
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}
	if raw == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(raw, ","):
		// dot groups thousands, comma separates cents
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case strings.Count(raw, ".") > 1, thousandsOnly.MatchString(raw):
		raw = strings.ReplaceAll(raw, ".", "")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// FormatPercent renders v with digits decimals and a decimal comma, e.g.
// "12,5%".
func FormatPercent(v float64, digits int) string {
	s := decimal.NewFromFloat(v).StringFixed(int32(digits))
	return strings.Replace(s, ".", ",", 1) + "%"
}
