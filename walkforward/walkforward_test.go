package walkforward

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/broker/sim"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{date(2024, 1, 15), 1, date(2024, 2, 15)},
		{date(2024, 1, 31), 1, date(2024, 2, 28)},
		{date(2024, 11, 30), 3, date(2025, 2, 28)},
		{date(2024, 3, 10), 12, date(2025, 3, 10)},
		{date(2024, 1, 10), -1, date(2023, 12, 10)},
		{date(2024, 1, 10), -13, date(2022, 12, 10)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonths(tt.in, tt.n), "%v %+d", tt.in, tt.n)
	}
}

func TestSplitWindows(t *testing.T) {
	t.Parallel()

	ws, err := SplitWindows(date(2022, 1, 1), date(2024, 1, 1), 6, 3, 3)
	require.NoError(t, err)
	require.Len(t, ws, 6)

	assert.Equal(t, Window{
		TrainStart: date(2022, 1, 1),
		TrainEnd:   date(2022, 7, 1),
		TestStart:  date(2022, 7, 1),
		TestEnd:    date(2022, 10, 1),
	}, ws[0])
	assert.Equal(t, date(2024, 1, 1), ws[5].TestEnd)
	for _, w := range ws {
		assert.Equal(t, w.TrainEnd, w.TestStart)
	}

	ws, err = SplitWindows(date(2022, 1, 1), date(2022, 6, 1), 6, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, ws)

	_, err = SplitWindows(date(2022, 1, 1), date(2024, 1, 1), 6, 0, 3)
	assert.Error(t, err)
}

type memSource struct {
	bars []market.Bar
	err  error
}

func (m memSource) LoadOHLCV(symbol string, tf market.Timeframe, start, end time.Time) ([]market.Bar, error) {
	if m.err != nil {
		return nil, m.err
	}
	return market.FilterRange(m.bars, start, end), nil
}

func dailyBars(from, to time.Time) []market.Bar {
	var out []market.Bar
	for i, t := 0, from; t.Before(to); i, t = i+1, t.AddDate(0, 0, 1) {
		c := 100 + 10*math.Sin(float64(i)/15) + float64(i)*0.02
		out = append(out, market.Bar{Time: t, Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	return out
}

// failIn errors on any bar inside [from, to).
type failIn struct {
	backtest.Strategy
	from, to time.Time
}

func (f failIn) GenerateSignals(ctx backtest.Context) (*backtest.Signal, error) {
	if !ctx.Bar.Time.Before(f.from) && ctx.Bar.Time.Before(f.to) {
		return nil, errors.New("bad data")
	}
	return f.Strategy.GenerateSignals(ctx)
}

func newPipeline(src market.Source, strat StrategyFactory) *Pipeline {
	return &Pipeline{
		Source:      src,
		Symbol:      "TEST",
		NewStrategy: strat,
		NewEngine: func(s backtest.Strategy) (*backtest.Engine, error) {
			return backtest.NewEngine(backtest.DefaultConfig(10000), sim.NewVenue(broker.Costs{}), s)
		},
		Workers: 3,
	}
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	start, end := date(2022, 1, 1), date(2024, 1, 1)
	p := newPipeline(memSource{bars: dailyBars(start, end)}, func() (backtest.Strategy, error) {
		return strategies.StrategyByName("ma-cross", strategies.Params{MAFast: 5, MASlow: 20})
	})

	res, err := p.Run(context.Background(), start, end, 6, 3, 3)
	require.NoError(t, err)
	require.Len(t, res.Windows, 6)
	for i, w := range res.Windows {
		assert.Equal(t, i+1, w.Index)
		assert.NoError(t, w.Err)
		assert.False(t, w.Train.Start.Before(w.TrainStart))
		assert.True(t, w.Train.End.Before(w.TrainEnd))
		assert.False(t, w.Test.Start.Before(w.TestStart))
	}
	assert.Equal(t, 6, res.Aggregate.Windows)
	assert.Zero(t, res.Aggregate.Failed)
	assert.Contains(t, []string{"PASS", "FAIL"}, res.Aggregate.Consistency)
	assert.True(t, res.Aggregate.ISOOSCorr >= -1 && res.Aggregate.ISOOSCorr <= 1)
}

func TestPipeline_FailedWindowDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	start, end := date(2022, 1, 1), date(2024, 1, 1)
	// Only the last window's test period covers Q4 2023.
	bad := failIn{from: date(2023, 11, 1), to: date(2023, 12, 1)}
	p := newPipeline(memSource{bars: dailyBars(start, end)}, func() (backtest.Strategy, error) {
		f := bad
		f.Strategy = &strategies.BuyHold{}
		return f, nil
	})

	res, err := p.Run(context.Background(), start, end, 6, 3, 3)
	require.NoError(t, err)
	require.Len(t, res.Windows, 6)
	assert.Equal(t, 1, res.Aggregate.Failed)
	assert.Error(t, res.Windows[5].Err)
	for _, w := range res.Windows[:5] {
		assert.NoError(t, w.Err)
	}
}

func TestPipeline_Errors(t *testing.T) {
	t.Parallel()

	start, end := date(2022, 1, 1), date(2024, 1, 1)
	noop := func() (backtest.Strategy, error) { return strategies.NoopStrategy{}, nil }

	_, err := (&Pipeline{}).Run(context.Background(), start, end, 6, 3, 3)
	assert.Error(t, err)

	_, err = newPipeline(memSource{err: market.ErrNoBars}, noop).Run(context.Background(), start, end, 6, 3, 3)
	assert.ErrorIs(t, err, market.ErrNoBars)

	_, err = newPipeline(memSource{}, noop).Run(context.Background(), start, date(2022, 3, 1), 6, 3, 3)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newPipeline(memSource{bars: dailyBars(start, end)}, noop).Run(ctx, start, end, 6, 3, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	rs := []WindowResult{
		{Train: report(1, 0.1), Test: report(0.8, 0.05)},
		{Train: report(2, 0.2), Test: report(1.7, 0.1)},
		{Train: report(3, 0.3), Test: report(2.9, 0.2)},
		{Err: errors.New("x")},
	}
	a := aggregate(rs)
	assert.Equal(t, 4, a.Windows)
	assert.Equal(t, 1, a.Failed)
	assert.InDelta(t, 2, a.AvgISSharpe, 1e-12)
	assert.InDelta(t, 0.2, a.AvgISReturn, 1e-12)
	assert.Greater(t, a.ISOOSCorr, 0.99)
	assert.Equal(t, "PASS", a.Consistency)

	single := aggregate(rs[:1])
	assert.Zero(t, single.ISOOSCorr)
	assert.Equal(t, "FAIL", single.Consistency)
}

func report(sharpe, cagr float64) analytics.Report {
	return analytics.Report{Sharpe: sharpe, CAGR: cagr}
}
