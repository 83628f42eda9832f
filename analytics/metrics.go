// Package analytics computes performance metrics from an engine's trade
// ledger and equity curve.
package analytics

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/backtester/backtest"
)

// TradingDaysPerYear annualizes daily Sharpe and Sortino ratios.
const TradingDaysPerYear = 252

// Drawdowns returns a copy of curve with Drawdown set to the fractional
// decline from the running peak.
func Drawdowns(curve []backtest.EquityPoint) []backtest.EquityPoint {
	out := make([]backtest.EquityPoint, len(curve))
	var peak float64
	for i, pt := range curve {
		if i == 0 || pt.Equity > peak {
			peak = pt.Equity
		}
		pt.Drawdown = drawdown(peak, pt.Equity)
		out[i] = pt
	}
	return out
}

// MaxDrawdown is the largest fractional decline from a running peak.
func MaxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		maxDD = math.Max(maxDD, drawdown(peak, v))
	}
	return maxDD
}

// UlcerIndex is the root mean square of the drawdowns.
func UlcerIndex(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	var peak, sum float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		dd := drawdown(peak, v)
		sum += dd * dd
	}
	return math.Sqrt(sum / float64(len(equity)))
}

func drawdown(peak, v float64) float64 {
	if peak == 0 {
		return 0
	}
	return (peak - v) / peak
}

// Sharpe is mean over population standard deviation of returns, 0 when
// either is undefined.
func Sharpe(returns []float64) float64 {
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationPopulation(returns)
	if err != nil || sd == 0 {
		return 0
	}
	return mean / sd
}

// Sortino divides the mean return by the downside deviation of the
// negative returns. It is 0 when there are no losing periods.
func Sortino(returns []float64) float64 {
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	var sum float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sum += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	dd := math.Sqrt(sum / float64(n))
	if dd == 0 {
		return 0
	}
	return mean / dd
}

// Annualize scales a per-period ratio by sqrt(periodsPerYear).
func Annualize(ratio float64, periodsPerYear int) float64 {
	return ratio * math.Sqrt(float64(periodsPerYear))
}

// CAGR is the compound annual growth rate, 0 for a non-positive start or
// horizon.
func CAGR(initial, final, years float64) float64 {
	if initial <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(final/initial, 1/years) - 1
}

// ProfitFactor is gross profit over gross loss, 0 when nothing was lost.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / math.Abs(grossLoss)
}

// Calmar is annual return over max drawdown.
func Calmar(annualReturn, maxDD float64) float64 {
	if maxDD == 0 {
		return 0
	}
	return annualReturn / math.Abs(maxDD)
}

// MaxConsecutiveLosses counts the longest run of losing trades.
func MaxConsecutiveLosses(pnls []float64) int {
	var best, cur int
	for _, p := range pnls {
		if p < 0 {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}
