package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/pkg/id"
)

type memJournal struct {
	trades []TradeRecord
	equity []EquitySnapshot
}

func (m *memJournal) RecordTrade(t TradeRecord) error {
	m.trades = append(m.trades, t)
	return nil
}

func (m *memJournal) RecordEquity(e EquitySnapshot) error {
	m.equity = append(m.equity, e)
	return nil
}

func (m *memJournal) Close() error { return nil }

func TestRecorder(t *testing.T) {
	t.Parallel()

	exit := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	r := 1.5
	tr := backtest.TradeRecord{
		PositionID: "sim-3",
		Symbol:     "EURUSD",
		Side:       market.Short,
		EntryTime:  exit.Add(-2 * time.Hour),
		ExitTime:   exit,
		EntryPrice: 1.1,
		ExitPrice:  1.09,
		Size:       2,
		PnL:        0.02,
		Fees:       0.25,
		Stop:       1.105,
		RMultiple:  &r,
		Reason:     backtest.ReasonTarget,
	}

	m := &memJournal{}
	rec := NewRecorder(m, "run-7")
	require.NoError(t, rec.RecordTrade(tr))
	require.NoError(t, rec.RecordEquity(backtest.EquityPoint{Time: exit, Equity: 10}))

	require.Len(t, m.trades, 1)
	got := m.trades[0]
	assert.Equal(t, "run-7", got.RunID)
	assert.Equal(t, "short", got.Side)
	assert.Equal(t, "sim-3", got.PositionID)
	assert.InDelta(t, 0.02, got.RealizedPL, 1e-12)
	assert.Equal(t, backtest.ReasonTarget, got.Reason)

	ts, err := id.Time(got.TradeID)
	require.NoError(t, err)
	assert.True(t, exit.Equal(ts))

	require.Len(t, m.equity, 1)
	assert.Equal(t, "run-7", m.equity[0].RunID)
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	tr := sampleTrade("01HV0000000000000012345678", time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC), -0.005)
	out := FormatTradeOrg(tr)

	assert.True(t, strings.HasPrefix(out, "*** EURUSD long STOP (12345678)"))
	assert.Contains(t, out, ":TRADE_ID: 01HV0000000000000012345678")
	assert.Contains(t, out, ":TARGET: 1.11000")
	assert.Contains(t, out, ":CLOSE_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, out, ":REALIZED_PL: -0.00500")
	assert.NotContains(t, out, ":R_MULTIPLE:")
	assert.True(t, strings.HasSuffix(out, ":END:\n"))
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatTradesOrg(nil))

	at := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	out := FormatTradesOrg([]TradeRecord{sampleTrade("a", at, 1), sampleTrade("b", at, -1)})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, ":END:\n\n***")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "12345678", shortID("abcdefgh12345678"))
}

func TestBacktestRunOrg(t *testing.T) {
	t.Parallel()

	run := BacktestRun{
		RunID:        "r1",
		Strategy:     "buy-hold",
		Symbol:       "SPY",
		StartBalance: 1000,
		EndBalance:   900,
		WinRate:      0.25,
		Notes:        []string{"flat market"},
	}
	run.Finalize()
	assert.InDelta(t, -100, run.NetPL, 1e-9)
	assert.InDelta(t, -10, run.ReturnPct, 1e-9)

	out, err := run.Org(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: buy-hold SPY (timeframe?)")
	assert.Contains(t, out, "- Win Rate:         *25.00%*")
	assert.Contains(t, out, "- flat market")
	assert.NotContains(t, out, "** Trades")

	assert.Error(t, run.WriteBacktestOrg(nil))
}
