package risk

// Policy holds the portfolio-level circuit breakers. Limits are absolute
// amounts in account currency; nil disables a limit.
type Policy struct {
	MaxDailyRisk  *float64
	MaxWeeklyRisk *float64
}

// PnLSnapshot is realized pnl since the start of the current day and ISO week.
type PnLSnapshot struct {
	DayRealized  float64
	WeekRealized float64
}

// DayLoss is max(0, -DayRealized).
func (p PnLSnapshot) DayLoss() float64 {
	if p.DayRealized >= 0 {
		return 0
	}
	return -p.DayRealized
}

// WeekLoss is max(0, -WeekRealized).
func (p PnLSnapshot) WeekLoss() float64 {
	if p.WeekRealized >= 0 {
		return 0
	}
	return -p.WeekRealized
}

// Limit is a helper for building optional limits.
func Limit(v float64) *float64 { return &v }
