package backtest

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/backtester/events"
	"github.com/rustyeddy/backtester/market"
)

// Recorder receives the ledger as it grows. Trades are delivered once, in
// order; one equity point is delivered per bar.
type Recorder interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityPoint) error
}

// RunnerOptions controls how the runner behaves.
type RunnerOptions struct {
	// Log progress every N bars; 0 disables.
	ProgressEvery int
}

// Runner drives an engine over a bar series:
//  1. emit a BarArrived event (the engine handles it first)
//  2. forward new trades and the equity point to the Recorder
//
// Cancelling ctx stops the replay between bars; the engine is left as it
// was after the last complete bar.
type Runner struct {
	Engine   *Engine
	Recorder Recorder
	Options  RunnerOptions
	Log      log.FieldLogger
}

// Result is a lightweight summary of a backtest run.
type Result struct {
	Symbol         string
	InitialCapital float64
	Cash           float64
	Equity         float64
	Fees           float64

	Bars          int
	Trades        int
	Wins          int
	Losses        int
	OpenPositions int

	Start time.Time
	End   time.Time
}

func (r *Runner) Run(ctx context.Context, bars []market.Bar, symbol string) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	logger := r.Log
	if logger == nil {
		logger = log.WithField("component", "runner")
	}

	bus := r.Engine.Dispatcher()
	seen := len(r.Engine.trades)
	var recErr error

	id := bus.Register(events.BarArrived, func(ev events.Event) error {
		if r.Recorder == nil {
			return nil
		}
		for _, tr := range r.Engine.TradesSince(seen) {
			if err := r.Recorder.RecordTrade(tr); err != nil {
				recErr = fmt.Errorf("record trade: %w", err)
				return recErr
			}
		}
		seen = len(r.Engine.trades)
		if n := len(r.Engine.equity); n > 0 {
			if err := r.Recorder.RecordEquity(r.Engine.equity[n-1]); err != nil {
				recErr = fmt.Errorf("record equity: %w", err)
				return recErr
			}
		}
		return nil
	})
	defer bus.Unregister(events.BarArrived, id)

	res := Result{Symbol: symbol, InitialCapital: r.Engine.InitialCapital()}

	for i, b := range bars {
		if err := ctx.Err(); err != nil {
			return r.summarize(res), err
		}
		if res.Start.IsZero() || b.Time.Before(res.Start) {
			res.Start = b.Time
		}
		if res.End.IsZero() || b.Time.After(res.End) {
			res.End = b.Time
		}

		if err := bus.Emit(events.Event{Kind: events.BarArrived, Payload: BarEvent{Bar: b, Symbol: symbol}}); err != nil {
			return r.summarize(res), err
		}

		if n := r.Options.ProgressEvery; n > 0 && (i+1)%n == 0 {
			logger.WithFields(log.Fields{
				"bars":   i + 1,
				"equity": r.Engine.Equity(),
			}).Info("processed bars")
		}
	}

	return r.summarize(res), recErr
}

func (r *Runner) summarize(res Result) Result {
	e := r.Engine
	res.Cash = e.Cash()
	res.Equity = e.Equity()
	res.Fees = e.Fees()
	res.Bars = e.BarsProcessed()
	res.OpenPositions = len(e.positions)
	res.Trades = len(e.trades)
	for _, tr := range e.trades {
		switch {
		case tr.PnL > 0:
			res.Wins++
		case tr.PnL < 0:
			res.Losses++
		}
	}
	return res
}
