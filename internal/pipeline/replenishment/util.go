package replenishment

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// roundFloat rounds v to the given number of decimal places, half to even.
// Non-finite values round to 0.
func roundFloat(v float64, decimals int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(v).RoundBank(decimals).InexactFloat64()
}

func roundInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundBank(0).IntPart()
}

// formatIDFloat renders v the way the source spreadsheets do: dot thousands,
// comma decimals, half-to-even like every other figure in the report. A zero
// fraction is omitted, so 1234.5 gives "1.234,50" and 1000 gives "1.000".
func formatIDFloat(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if decimals < 0 {
		decimals = 0
	}

	d := decimal.NewFromFloat(v).RoundBank(int32(decimals))
	if d.IsZero() {
		return "0"
	}
	intDigits, frac, _ := strings.Cut(d.Abs().StringFixed(int32(decimals)), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intDigits {
		if i > 0 && (len(intDigits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if strings.Trim(frac, "0") != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
