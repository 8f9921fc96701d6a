// Package money holds the exact decimal arithmetic shared by pricing,
// refunds and payment reconciliation.
package money

import "github.com/shopspring/decimal"

var (
	Zero = decimal.Zero

	BusinessMultiplier = decimal.RequireFromString("2.5")
	FirstMultiplier    = decimal.RequireFromString("4.0")
	HalfRefund         = decimal.RequireFromString("0.5")
	LargePayment       = decimal.NewFromInt(1000)
)

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Percent returns part/whole*100, zero for an empty whole.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return rate
}

// Positive reports whether amount is strictly greater than zero.
func Positive(amount decimal.Decimal) bool {
	return amount.GreaterThan(decimal.Zero)
}
