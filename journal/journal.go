// Package journal persists backtest ledgers: trades, equity points and run
// summaries.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/pkg/id"
)

// TradeRecord is one realized exit as stored by a journal.
type TradeRecord struct {
	TradeID    string
	RunID      string
	PositionID string
	Symbol     string
	Side       string
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	Stop       float64
	Target     *float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Fees       float64
	RMultiple  *float64
	Reason     string
}

// EquitySnapshot is one point of the equity curve.
type EquitySnapshot struct {
	RunID    string
	Time     time.Time
	Equity   float64
	Drawdown float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Recorder adapts a Journal to backtest.Recorder, stamping every row with
// the run ID.
type Recorder struct {
	j     Journal
	runID string
}

func NewRecorder(j Journal, runID string) *Recorder {
	return &Recorder{j: j, runID: runID}
}

func (r *Recorder) RecordTrade(t backtest.TradeRecord) error {
	if err := r.j.RecordTrade(FromTrade(r.runID, t)); err != nil {
		return fmt.Errorf("journal trade %s: %w", t.PositionID, err)
	}
	return nil
}

func (r *Recorder) RecordEquity(p backtest.EquityPoint) error {
	return r.j.RecordEquity(EquitySnapshot{
		RunID:    r.runID,
		Time:     p.Time,
		Equity:   p.Equity,
		Drawdown: p.Drawdown,
	})
}

// FromTrade converts an engine trade. The trade ID is a ULID stamped with
// the exit time.
func FromTrade(runID string, t backtest.TradeRecord) TradeRecord {
	return TradeRecord{
		TradeID:    id.At(t.ExitTime),
		RunID:      runID,
		PositionID: t.PositionID,
		Symbol:     t.Symbol,
		Side:       t.Side.String(),
		Size:       t.Size,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Stop:       t.Stop,
		Target:     t.Target,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		RealizedPL: t.PnL,
		Fees:       t.Fees,
		RMultiple:  t.RMultiple,
		Reason:     t.Reason,
	}
}

// Discard is a Journal that drops everything.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error { return nil }

func (Discard) RecordEquity(EquitySnapshot) error { return nil }

func (Discard) Close() error { return nil }
