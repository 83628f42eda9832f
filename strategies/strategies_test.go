package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/broker/sim"
	"github.com/rustyeddy/backtester/market"
)

var start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func closes(step time.Duration, cs ...float64) []market.Bar {
	out := make([]market.Bar, len(cs))
	for i, c := range cs {
		out[i] = market.Bar{Time: start.Add(time.Duration(i) * step), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

// drive feeds bars one by one the way the engine does and returns the
// signal produced on each bar.
func drive(t *testing.T, s backtest.Strategy, bars []market.Bar) []*backtest.Signal {
	t.Helper()
	out := make([]*backtest.Signal, len(bars))
	for i, b := range bars {
		sig, err := s.GenerateSignals(backtest.Context{Bar: b, Symbol: "EURUSD", History: bars[:i+1]})
		require.NoError(t, err)
		out[i] = sig
	}
	return out
}

func TestNoopStrategy(t *testing.T) {
	t.Parallel()

	strat := NoopStrategy{}
	sig, err := strat.GenerateSignals(backtest.Context{})
	assert.NoError(t, err)
	assert.Nil(t, sig)
	assert.False(t, strat.IdentifySetup(backtest.Context{}))
}

func TestBuyHold_EntersOnce(t *testing.T) {
	t.Parallel()

	sigs := drive(t, &BuyHold{}, closes(time.Hour, 100, 101, 102))
	require.NotNil(t, sigs[0])
	assert.Equal(t, market.Long, sigs[0].Direction)
	assert.InDelta(t, 100, sigs[0].Entry, 1e-9)
	assert.InDelta(t, 95, sigs[0].Stop, 1e-9)
	require.NotNil(t, sigs[0].Size)
	assert.InDelta(t, 1.0, *sigs[0].Size, 1e-9)
	assert.Nil(t, sigs[0].Target)
	assert.Nil(t, sigs[1])
	assert.Nil(t, sigs[2])
}

func TestMACross_SignalsOnCross(t *testing.T) {
	t.Parallel()

	s, err := NewMACross(Params{MAFast: 2, MASlow: 4, ATRPeriod: 2})
	require.NoError(t, err)
	assert.Equal(t, "ma-cross(2,4)", s.Name())

	bars := closes(time.Hour, 10, 9, 8, 7, 6, 7, 8, 9, 10, 9, 8, 7, 6)
	sigs := drive(t, s, bars)

	var got []int
	for i, sig := range sigs {
		if sig != nil {
			got = append(got, i)
		}
	}
	require.Equal(t, []int{6, 10}, got)

	long := sigs[6]
	assert.Equal(t, market.Long, long.Direction)
	assert.InDelta(t, 8.0, long.Entry, 1e-9)
	assert.InDelta(t, 8.0-8.0*0.002, long.Stop, 1e-9)
	require.NotNil(t, long.Target)
	assert.InDelta(t, 8.0+2*8.0*0.002, *long.Target, 1e-9)
	require.NotNil(t, long.ATR)
	require.NotNil(t, long.AverageATR)
	assert.InDelta(t, 1.0, *long.ATR, 1e-9)
	assert.InDelta(t, 1.0, *long.AverageATR, 1e-9)

	short := sigs[10]
	assert.Equal(t, market.Short, short.Direction)
	assert.Greater(t, short.Stop, short.Entry)
	assert.Less(t, *short.Target, short.Entry)
}

func TestMACross_Cooldown(t *testing.T) {
	t.Parallel()

	s, err := NewMACross(Params{MAFast: 2, MASlow: 4, CooldownBars: 10})
	require.NoError(t, err)

	sigs := drive(t, s, closes(time.Hour, 10, 9, 8, 7, 6, 7, 8, 9, 10, 9, 8, 7, 6))
	assert.NotNil(t, sigs[6])
	assert.Nil(t, sigs[10], "bear cross falls inside the cooldown")
}

func TestMACross_ADXFilter(t *testing.T) {
	t.Parallel()

	bars := closes(time.Hour, 10, 9, 8, 7, 6, 7, 8, 9, 10, 9, 8, 7, 6)
	// ADX(2) is 50 at the bull cross and 46.875 at the bear cross.
	tests := []struct {
		min  float64
		want []int
	}{
		{40, []int{6, 10}},
		{48, []int{6}},
		{101, nil},
	}
	for _, tt := range tests {
		s, err := NewMACross(Params{MAFast: 2, MASlow: 4, ATRPeriod: 2, ADXPeriod: 2, ADXMin: tt.min})
		require.NoError(t, err)
		assert.Contains(t, s.Name(), "ADX(2)")

		var got []int
		for i, sig := range drive(t, s, bars) {
			if sig != nil {
				got = append(got, i)
			}
		}
		assert.Equal(t, tt.want, got, "adx_min %v", tt.min)
	}

	_, err := NewMACross(Params{MAFast: 2, MASlow: 4, ADXMin: -1})
	assert.Error(t, err)
}

func TestMACross_RejectsBadPeriods(t *testing.T) {
	t.Parallel()

	_, err := NewMACross(Params{MAFast: 50, MASlow: 20})
	assert.Error(t, err)
}

func TestRandomBaseline_Deterministic(t *testing.T) {
	t.Parallel()

	p := Params{RandomSeed: 7, TradeProbability: 0.3, CooldownBars: 2}
	bars := closes(6*time.Hour, make([]float64, 200)...)
	for i := range bars {
		c := 1.1 + float64(i%10)*0.001
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = c, c, c, c
	}

	a, err := NewRandomBaseline(p)
	require.NoError(t, err)
	b, err := NewRandomBaseline(p)
	require.NoError(t, err)

	sa := drive(t, a, bars)
	sb := drive(t, b, bars)
	assert.Equal(t, sa, sb)

	n := 0
	days := map[market.DayKey]bool{}
	for i, sig := range sa {
		if sig == nil {
			continue
		}
		n++
		d := market.DayOf(bars[i].Time)
		assert.False(t, days[d], "two signals on %v", d)
		days[d] = true
	}
	assert.Positive(t, n)
}

func TestRandomBaseline_OncePerDay(t *testing.T) {
	t.Parallel()

	s, err := NewRandomBaseline(Params{TradeProbability: 1, CooldownBars: 1})
	require.NoError(t, err)

	sigs := drive(t, s, closes(time.Hour, 1, 1, 1))
	assert.NotNil(t, sigs[0])
	assert.Nil(t, sigs[1])
	assert.Nil(t, sigs[2])
}

func TestStrategyByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "noop", want: "noop"},
		{name: " None ", want: "noop"},
		{name: "buy-and-hold", want: "buy-hold"},
		{name: "MA-Crossover", want: "ma-cross(20,50)"},
		{name: "random", want: "random"},
		{name: "martingale", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := StrategyByName(tt.name, Params{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}

	a, _ := StrategyByName("buy-hold", Params{})
	b, _ := StrategyByName("buy-hold", Params{})
	assert.NotSame(t, a, b)
	assert.Contains(t, Names(), "ma-cross")
}

func TestBuyHold_ThroughEngine(t *testing.T) {
	t.Parallel()

	strat, err := StrategyByName("buy-hold", Params{})
	require.NoError(t, err)
	cfg := backtest.DefaultConfig(1000)
	cfg.PartialExit = false
	e, err := backtest.NewEngine(cfg, sim.NewVenue(broker.Costs{}), strat)
	require.NoError(t, err)

	require.NoError(t, e.Run(closes(24*time.Hour, 100, 110, 120), "SPY"))
	assert.Len(t, e.Positions(), 1)
	assert.Empty(t, e.Trades())
	assert.InDelta(t, 1020, e.Equity(), 1e-9)
}
