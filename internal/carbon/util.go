package carbon

import "github.com/shopspring/decimal"

// Round2 rounds kg values to 2 decimal places, half away from zero.
// Only reported values are rounded; running totals keep full precision.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatKg formats a kg value with exactly 2 decimal places.
func FormatKg(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
