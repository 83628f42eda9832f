package risk

// Manager is the sizing and limit surface the engine depends on. All
// methods are pure.
type Manager interface {
	SizePosition(equity, riskFraction, entry, stop float64) float64
	VolatilityScale(atr, averageATR float64) float64
	DailyLimitOK(loss float64, limit *float64) bool
	WeeklyLimitOK(loss float64, limit *float64) bool
	PartialExitPolicy(entry, stop, target float64) PartialExit
}

// Standard implements Manager with the package functions. TrailPercentage
// overrides the default partial exit share when positive.
type Standard struct {
	TrailPercentage float64
}

func (Standard) SizePosition(equity, riskFraction, entry, stop float64) float64 {
	return SizePosition(equity, riskFraction, entry, stop)
}

func (Standard) VolatilityScale(atr, averageATR float64) float64 {
	return VolatilityScale(atr, averageATR)
}

func (Standard) DailyLimitOK(loss float64, limit *float64) bool {
	return DailyLimitOK(loss, limit)
}

func (Standard) WeeklyLimitOK(loss float64, limit *float64) bool {
	return WeeklyLimitOK(loss, limit)
}

func (s Standard) PartialExitPolicy(entry, stop, target float64) PartialExit {
	pct := DefaultTrailPercentage
	if s.TrailPercentage > 0 {
		pct = s.TrailPercentage
	}
	return PartialExit{TrailPercentage: pct}
}
