package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CurrencySymbol = "GH₵"

// FormatCedis formats an amount as Ghana cedis with 2 decimals and thousands separators: GH₵1,234.50
func FormatCedis(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(CurrencySymbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
