package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of the entry gate.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes returns the violation codes in evaluation order.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

// Evaluate applies the daily and weekly loss limits. It blocks new entries
// only; managing open positions is never gated.
func Evaluate(m Manager, p Policy, pnl PnLSnapshot) Decision {
	d := Decision{Allowed: true}

	if loss := pnl.DayLoss(); !m.DailyLimitOK(loss, p.MaxDailyRisk) {
		d.add("DAILY_LOSS_LIMIT", fmt.Sprintf("day loss %.2f exceeds limit %s", loss, limitString(p.MaxDailyRisk)))
	}
	if loss := pnl.WeekLoss(); !m.WeeklyLimitOK(loss, p.MaxWeeklyRisk) {
		d.add("WEEKLY_LOSS_LIMIT", fmt.Sprintf("week loss %.2f exceeds limit %s", loss, limitString(p.MaxWeeklyRisk)))
	}

	return d
}

func limitString(l *float64) string {
	if l == nil {
		return "none"
	}
	return fmt.Sprintf("%.2f", *l)
}
