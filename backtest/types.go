package backtest

import (
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Context is what a strategy sees on each bar. History ends with Bar and
// must be treated as read-only.
type Context struct {
	Bar     market.Bar
	Symbol  string
	History []market.Bar
}

// Signal is a directional entry request. Zero Entry means "at the bar
// close"; zero Stop means "at the entry".
type Signal struct {
	Direction  market.Side
	Entry      float64
	Stop       float64
	Target     *float64
	Size       *float64
	Confluence *float64

	// Optional volatility inputs. Both must be set for size scaling.
	ATR        *float64
	AverageATR *float64

	// Symbol overrides the run symbol when set.
	Symbol string
}

// Strategy generates entry signals. Implementations are independent
// variants; the engine only consumes GenerateSignals.
type Strategy interface {
	Name() string
	IdentifySetup(ctx Context) bool
	GenerateSignals(ctx Context) (*Signal, error)
	ValidateContext(ctx Context) bool
}

// Position is an open trade. It is owned and mutated by the engine only.
type Position struct {
	ID            string
	Symbol        string
	Side          market.Side
	Entry         float64
	Stop          float64
	Target        *float64
	OriginalSize  float64
	RemainingSize float64
	OpenTime      time.Time

	CloseTime *time.Time
	ExitPrice *float64

	PartialExitDone bool
	TrailStop       *float64
	Confluence      *float64
}

func newPosition(id, symbol string, side market.Side, entry, stop float64, target *float64, size float64, open time.Time, confluence *float64) *Position {
	return &Position{
		ID:            id,
		Symbol:        symbol,
		Side:          side,
		Entry:         entry,
		Stop:          stop,
		Target:        copyFloat(target),
		OriginalSize:  size,
		RemainingSize: size,
		OpenTime:      open,
		Confluence:    copyFloat(confluence),
	}
}

// IsOpen reports whether the position has not been closed.
func (p *Position) IsOpen() bool { return p.CloseTime == nil }

// PnL is the side-correct pnl of size units exited at price.
func (p *Position) PnL(price, size float64) float64 {
	return float64(p.Side) * (price - p.Entry) * size
}

// Unrealized marks the remaining size at price.
func (p *Position) Unrealized(price float64) float64 {
	return p.PnL(price, p.RemainingSize)
}

func (p *Position) clone() Position {
	c := *p
	c.Target = copyFloat(p.Target)
	c.TrailStop = copyFloat(p.TrailStop)
	c.Confluence = copyFloat(p.Confluence)
	c.ExitPrice = copyFloat(p.ExitPrice)
	if p.CloseTime != nil {
		t := *p.CloseTime
		c.CloseTime = &t
	}
	return c
}

// Exit reasons recorded on trades.
const (
	ReasonStop        = "STOP"
	ReasonTarget      = "TARGET"
	ReasonStopAndTake = "STOP&TARGET same bar (stop-first)"
	ReasonPartial     = "PARTIAL_1R"
)

// TradeRecord is one realized exit, full or partial. Never mutated.
type TradeRecord struct {
	PositionID string
	Symbol     string
	Side       market.Side
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	PnL        float64
	Fees       float64 // exit fee charged for this slice
	Stop       float64
	Target     *float64
	RMultiple  *float64
	Confluence *float64
	Reason     string
}

// EquityPoint is the mark-to-market equity after one bar. Drawdown is left
// at zero by the engine; see analytics.Drawdowns.
type EquityPoint struct {
	Time     time.Time
	Equity   float64
	Drawdown float64
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float returns a pointer to v, for optional signal fields.
func Float(v float64) *float64 { return &v }
