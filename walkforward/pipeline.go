// Package walkforward re-runs backtests over rolling train/test calendar
// windows and checks whether in-sample results carry over out of sample.
package walkforward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
)

// ConsistencyThreshold is the IS/OOS Sharpe correlation above which a
// walk-forward passes.
const ConsistencyThreshold = 0.7

// StrategyFactory returns a fresh strategy for each run.
type StrategyFactory func() (backtest.Strategy, error)

// EngineFactory builds a private engine around a strategy.
type EngineFactory func(backtest.Strategy) (*backtest.Engine, error)

type Pipeline struct {
	Source      market.Source
	Symbol      string
	Timeframe   market.Timeframe
	NewStrategy StrategyFactory
	NewEngine   EngineFactory

	// Maximum windows run at once; <= 0 means one.
	Workers int
	Log     log.FieldLogger
}

// WindowResult is the outcome of one window. Err is set when either run
// failed; the reports are then incomplete.
type WindowResult struct {
	Index int
	Window
	Train analytics.Report
	Test  analytics.Report
	Err   error
}

type Aggregate struct {
	Windows      int
	Failed       int
	AvgISSharpe  float64
	AvgOOSSharpe float64
	AvgISReturn  float64
	AvgOOSReturn float64
	ISOOSCorr    float64
	Consistency  string
}

type Result struct {
	Windows   []WindowResult
	Aggregate Aggregate
}

// Run splits [start, end] into windows and runs each window's in-sample
// and out-of-sample backtests with fresh strategies and engines. Windows
// run in parallel up to Workers. A failed window is logged and recorded;
// the others still complete. Only context cancellation or a data error
// fails the whole run.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time, trainMonths, testMonths, stepMonths int) (Result, error) {
	if p.Source == nil || p.NewStrategy == nil || p.NewEngine == nil {
		return Result{}, errors.New("walkforward: Source, NewStrategy and NewEngine are required")
	}
	logger := p.Log
	if logger == nil {
		logger = log.WithField("component", "walkforward")
	}

	windows, err := SplitWindows(start, end, trainMonths, testMonths, stepMonths)
	if err != nil {
		return Result{}, err
	}
	if len(windows) == 0 {
		return Result{}, fmt.Errorf("walkforward: no %d+%d month window fits %s..%s",
			trainMonths, testMonths, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	bars, err := p.Source.LoadOHLCV(p.Symbol, p.Timeframe, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("load %s: %w", p.Symbol, err)
	}

	results := make([]WindowResult, len(windows))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wl := logger.WithFields(log.Fields{"window": i + 1, "range": w.String()})
			wl.Info("walk-forward window")

			res := WindowResult{Index: i + 1, Window: w}
			res.Train, res.Err = p.runOne(gctx, slice(bars, w.TrainStart, w.TrainEnd), wl)
			if res.Err == nil {
				res.Test, res.Err = p.runOne(gctx, slice(bars, w.TestStart, w.TestEnd), wl)
			}
			if res.Err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				wl.WithError(res.Err).Warn("walk-forward window failed")
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Windows: results}, err
	}

	return Result{Windows: results, Aggregate: aggregate(results)}, nil
}

func (p *Pipeline) runOne(ctx context.Context, bars []market.Bar, l log.FieldLogger) (analytics.Report, error) {
	if len(bars) == 0 {
		return analytics.Report{}, market.ErrNoBars
	}
	strat, err := p.NewStrategy()
	if err != nil {
		return analytics.Report{}, err
	}
	e, err := p.NewEngine(strat)
	if err != nil {
		return analytics.Report{}, err
	}
	r := backtest.Runner{Engine: e, Log: l}
	if _, err := r.Run(ctx, bars, p.Symbol); err != nil {
		return analytics.Report{}, err
	}
	return analytics.Compute(e), nil
}

// slice returns the bars with start <= t < end. bars must be time ordered.
func slice(bars []market.Bar, start, end time.Time) []market.Bar {
	lo := 0
	for lo < len(bars) && bars[lo].Time.Before(start) {
		lo++
	}
	hi := lo
	for hi < len(bars) && bars[hi].Time.Before(end) {
		hi++
	}
	return bars[lo:hi]
}

func aggregate(results []WindowResult) Aggregate {
	a := Aggregate{Windows: len(results), Consistency: "FAIL"}

	var isSharpe, oosSharpe, isRet, oosRet []float64
	for _, r := range results {
		if r.Err != nil {
			a.Failed++
			continue
		}
		isSharpe = append(isSharpe, r.Train.Sharpe)
		oosSharpe = append(oosSharpe, r.Test.Sharpe)
		isRet = append(isRet, r.Train.CAGR)
		oosRet = append(oosRet, r.Test.CAGR)
	}

	a.AvgISSharpe = mean(isSharpe)
	a.AvgOOSSharpe = mean(oosSharpe)
	a.AvgISReturn = mean(isRet)
	a.AvgOOSReturn = mean(oosRet)

	if len(isSharpe) > 1 {
		if c, err := stats.Pearson(isSharpe, oosSharpe); err == nil {
			a.ISOOSCorr = c
		}
	}
	if a.ISOOSCorr > ConsistencyThreshold {
		a.Consistency = "PASS"
	}
	return a
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}
