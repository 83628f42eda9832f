package risk

import "math"

// MinVolatilityMultiplier floors the divisor applied by volatility scaling.
const MinVolatilityMultiplier = 0.0001

// DefaultTrailPercentage is the share of the original size closed at 1R.
const DefaultTrailPercentage = 0.75

// SizePosition returns (equity*riskFraction)/|entry-stop|. A zero stop
// distance is a degenerate input and yields 0.
func SizePosition(equity, riskFraction, entry, stop float64) float64 {
	dist := math.Abs(entry - stop)
	if dist <= 0 {
		return 0
	}
	return (equity * riskFraction) / dist
}

// VolatilityScale returns atr/averageATR, or 1 when the average is not
// positive. Callers divide a risk-based size by it.
func VolatilityScale(atr, averageATR float64) float64 {
	if averageATR <= 0 {
		return 1.0
	}
	return atr / averageATR
}

// ScaleSize divides size by the volatility multiplier, floored at
// MinVolatilityMultiplier.
func ScaleSize(size, multiplier float64) float64 {
	return size / math.Max(multiplier, MinVolatilityMultiplier)
}

// DailyLimitOK reports loss <= limit. A nil limit always passes.
func DailyLimitOK(loss float64, limit *float64) bool {
	return limit == nil || loss <= *limit
}

// WeeklyLimitOK reports loss <= limit. A nil limit always passes.
func WeeklyLimitOK(loss float64, limit *float64) bool {
	return limit == nil || loss <= *limit
}

// PartialExit describes the first-target scale out.
type PartialExit struct {
	TrailPercentage float64
}
