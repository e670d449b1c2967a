package book

import "math"

// FeePercent is the exchange's cut of every fill, as a percentage of the
// traded notional. Charged to the incoming (taker) side.
const FeePercent = 1

// feeExactThreshold bounds the float path: at or above the signed-32-bit
// range, float64 rounding of notional*rate can lose precision, so the fee
// switches to integer modulo arithmetic.
const feeExactThreshold = math.MaxInt32

// Fee computes the exchange fee on a fill notional, rounding half-up.
// Large notionals round to the nearest multiple of the fee reciprocal
// (100 at 1%) with an explicit half-up tie-break.
func Fee(notional int64) int64 {
	if notional < feeExactThreshold {
		return int64(math.Round(float64(notional) * FeePercent / 100))
	}
	reciprocal := int64(math.Round(100.0 / FeePercent))
	mod := notional % reciprocal
	if mod >= reciprocal/2 {
		return (notional + reciprocal - mod) / reciprocal
	}
	return (notional - mod) / reciprocal
}

// Notional is the traded value of a fill: consumed quantity at the resting
// order's price.
func Notional(quantity, price int64) int64 {
	return quantity * price
}
