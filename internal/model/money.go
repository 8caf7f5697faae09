package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatWon renders an amount rounded to whole won with thousands
// separators, e.g. "1,500,000원".
func FormatWon(d decimal.Decimal) string {
	return GroupThousands(d.Round(0).StringFixed(0)) + "원"
}

// GroupThousands inserts commas into an integer string.
func GroupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
