package utils

import (
	"fmt"
	"strconv"
)

// FormatQuote formats a quote-currency amount with 2 decimal places.
func FormatQuote(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatQty formats a base quantity with up to 8 decimal places, trimming
// trailing zeros.
func FormatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}

// FormatPercent formats a fractional rate as a signed percentage, e.g.
// 0.0001 -> "+0.0100%".
func FormatPercent(rate float64) string {
	sign := ""
	if rate > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.4f%%", sign, rate*100)
}
