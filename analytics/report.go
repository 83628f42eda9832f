package analytics

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/backtester/backtest"
)

// Report summarizes one backtest run.
type Report struct {
	InitialCapital float64
	FinalEquity    float64

	Trades  int
	Wins    int
	Losses  int
	WinRate float64
	NetPnL  float64
	Fees    float64

	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64
	Expectancy   float64
	AverageR     float64

	MaxDrawdown float64
	UlcerIndex  float64
	Sharpe      float64
	Sortino     float64
	CAGR        float64
	Calmar      float64

	MaxConsecutiveLosses int
	AvgTradeDuration     time.Duration

	Start time.Time
	End   time.Time
}

// Source is what a report is computed from; *backtest.Engine satisfies it.
type Source interface {
	InitialCapital() float64
	Trades() []backtest.TradeRecord
	EquityCurve() []backtest.EquityPoint
	DailyReturns() []float64
	Fees() float64
}

// Compute builds a Report. Sharpe and Sortino are annualized from daily
// returns.
func Compute(src Source) Report {
	trades := src.Trades()
	curve := src.EquityCurve()

	r := Report{
		InitialCapital: src.InitialCapital(),
		FinalEquity:    src.InitialCapital(),
		Trades:         len(trades),
		Fees:           src.Fees(),
	}

	pnls := make([]float64, 0, len(trades))
	var rs []float64
	var held time.Duration
	for _, t := range trades {
		pnls = append(pnls, t.PnL)
		switch {
		case t.PnL > 0:
			r.Wins++
			r.GrossProfit += t.PnL
		case t.PnL < 0:
			r.Losses++
			r.GrossLoss += t.PnL
		}
		if t.RMultiple != nil {
			rs = append(rs, *t.RMultiple)
		}
		held += t.ExitTime.Sub(t.EntryTime)
	}
	r.NetPnL = r.GrossProfit + r.GrossLoss

	if n := len(trades); n > 0 {
		r.WinRate = float64(r.Wins) / float64(n)
		r.Expectancy = r.NetPnL / float64(n)
		r.AvgTradeDuration = held / time.Duration(n)
	}
	if r.Wins > 0 {
		r.AvgWin = r.GrossProfit / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = -r.GrossLoss / float64(r.Losses)
	}
	r.ProfitFactor = ProfitFactor(r.GrossProfit, r.GrossLoss)
	if avg, err := stats.Mean(rs); err == nil {
		r.AverageR = avg
	}
	r.MaxConsecutiveLosses = MaxConsecutiveLosses(pnls)

	equity := make([]float64, len(curve))
	for i, pt := range curve {
		equity[i] = pt.Equity
	}
	if len(curve) > 0 {
		r.Start = curve[0].Time
		r.End = curve[len(curve)-1].Time
		r.FinalEquity = equity[len(equity)-1]
	}
	r.MaxDrawdown = MaxDrawdown(equity)
	r.UlcerIndex = UlcerIndex(equity)

	daily := src.DailyReturns()
	r.Sharpe = Annualize(Sharpe(daily), TradingDaysPerYear)
	r.Sortino = Annualize(Sortino(daily), TradingDaysPerYear)

	years := r.End.Sub(r.Start).Hours() / 24 / 365.25
	r.CAGR = CAGR(r.InitialCapital, r.FinalEquity, years)
	r.Calmar = Calmar(r.CAGR, r.MaxDrawdown)
	return r
}
