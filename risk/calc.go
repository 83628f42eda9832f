package risk

import "math"

// PlannedRisk is the account-currency loss if the stop is hit.
func PlannedRisk(size, entry, stop float64) float64 {
	return math.Abs(size) * math.Abs(entry-stop)
}

// RR is reward over risk for a planned trade. It is 0 when the stop
// distance is zero.
func RR(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// RMultiple is realized pnl divided by the initial risk amount. ok is false
// when the risk amount is zero.
func RMultiple(pnl, entry, stop, size float64) (r float64, ok bool) {
	amount := PlannedRisk(size, entry, stop)
	if amount == 0 {
		return 0, false
	}
	return pnl / amount, true
}

// RiskPct is the planned risk as a fraction of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
