// Package commission holds the pure commission arithmetic: exact decimal
// calculation of commission amounts and trailing-revenue tier
// classification. No I/O.
package commission

import "github.com/shopspring/decimal"

// Calculate returns round(orderAmount * ratePercent / 100, 2), rounded
// half-up to the cent. Exact decimal arithmetic throughout; binary
// floating point would drift pennies (299.99 at 10% must be 30.00, not
// 29.999). The division by 100 is an exact exponent shift.
//
// Rates are validated at the creator boundary to lie in [0, 50]; an
// out-of-range rate here is a caller defect, not a runtime condition to
// silently correct, so no clamping happens.
func Calculate(orderAmount, ratePercent decimal.Decimal) decimal.Decimal {
	return orderAmount.Mul(ratePercent).Shift(-2).Round(2)
}
