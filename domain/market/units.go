package market

import (
	"math"
	"math/bits"
)

// Scale is the fixed-point denominator; all amounts and prices carry eight
// decimal places.
const Scale = 100_000_000

// ScaleDown brings the product of two scaled values back to a single scale.
// Truncation toward zero is deliberate: fractional remainders below one unit
// are dropped, never rounded up.
func ScaleDown(v int64) int64 {
	return v / Scale
}

// ScaleMul returns a*b/Scale, carrying the product through 128 bits so two
// in-range fixed-point values never wrap on the way. Quotients beyond int64
// clamp to MaxInt64; truncation toward zero as in ScaleDown.
func ScaleMul(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= Scale {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, Scale)
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// ToInternal converts an external decimal quantity to fixed point.
func ToInternal(v float64) int64 {
	return int64(math.Round(v * Scale))
}

// ToExternal converts a fixed-point quantity back to a decimal.
func ToExternal(v int64) float64 {
	return float64(v) / Scale
}

// ToFeeDivisor converts a percentage fee to the divisor the market charges
// with, e.g. 0.1% -> 1000.
func ToFeeDivisor(percent float64) int64 {
	return int64(math.Round(1 / (percent / 100)))
}

// ToFeePercent is the inverse of ToFeeDivisor.
func ToFeePercent(divisor int64) float64 {
	return 100 / float64(divisor)
}
