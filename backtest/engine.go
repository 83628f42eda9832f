package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/events"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

var (
	ErrNoStrategy    = errors.New("backtest: strategy is required")
	ErrNoVenue       = errors.New("backtest: execution venue is required")
	ErrInvalidSignal = errors.New("backtest: invalid signal")
)

// sizeEpsilon treats a remaining size this small as fully closed.
const sizeEpsilon = 1e-12

// Config is the typed, by-value engine configuration.
type Config struct {
	InitialCapital   float64
	RiskPerTrade     float64 // fraction of cash risked per trade, 0.01 = 1%
	PartialExit      bool
	StopSlippagePips float64
	Policy           risk.Policy
}

// DefaultConfig mirrors the defaults the CLI starts from.
func DefaultConfig(initialCapital float64) Config {
	return Config{
		InitialCapital:   initialCapital,
		RiskPerTrade:     0.01,
		PartialExit:      true,
		StopSlippagePips: 0.5,
	}
}

// BarEvent is the payload of an events.BarArrived event.
type BarEvent struct {
	Bar    market.Bar
	Symbol string
}

type Option func(*Engine)

// WithRiskManager replaces the default risk.Standard manager.
func WithRiskManager(m risk.Manager) Option {
	return func(e *Engine) { e.risk = m }
}

// WithLogger sets the engine logger.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDispatcher makes the engine subscribe to an existing dispatcher.
func WithDispatcher(d *events.Dispatcher) Option {
	return func(e *Engine) { e.bus = d }
}

// Engine replays bars through a strategy and keeps the account: cash, open
// positions, the trade ledger and the equity curve. It is single threaded;
// run independent backtests on independent engines.
type Engine struct {
	cfg   Config
	venue broker.Venue
	costs broker.Costs
	strat Strategy
	risk  risk.Manager
	bus   *events.Dispatcher
	log   log.FieldLogger

	cash      float64
	fees      float64
	positions []*Position
	trades    []TradeRecord
	equity    []EquityPoint
	history   []market.Bar

	currentDay  *market.DayKey
	currentWeek *market.WeekKey
	dailyPnL    float64
	weeklyPnL   float64
}

// NewEngine builds an engine and subscribes it to BarArrived events on its
// dispatcher. Exit costs are taken from the venue when it implements
// broker.CostModel.
func NewEngine(cfg Config, venue broker.Venue, strat Strategy, opts ...Option) (*Engine, error) {
	if venue == nil {
		return nil, ErrNoVenue
	}
	if strat == nil {
		return nil, ErrNoStrategy
	}

	e := &Engine{
		cfg:   cfg,
		venue: venue,
		strat: strat,
		risk:  risk.Standard{},
		cash:  cfg.InitialCapital,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.NewDispatcher()
	}
	if e.log == nil {
		e.log = log.WithField("component", "engine")
	}
	if cm, ok := venue.(broker.CostModel); ok {
		e.costs = cm.Costs()
	}

	e.bus.Register(events.BarArrived, e.handleBar)
	return e, nil
}

// Dispatcher returns the dispatcher the engine listens on. Handlers
// registered after construction run after the engine for each bar.
func (e *Engine) Dispatcher() *events.Dispatcher { return e.bus }

// Run emits one BarArrived event per bar, in order.
func (e *Engine) Run(bars []market.Bar, symbol string) error {
	for _, b := range bars {
		if err := e.bus.Emit(events.Event{Kind: events.BarArrived, Payload: BarEvent{Bar: b, Symbol: symbol}}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleBar(ev events.Event) error {
	be, ok := ev.Payload.(BarEvent)
	if !ok {
		return fmt.Errorf("backtest: unexpected %s payload %T", ev.Kind, ev.Payload)
	}
	return e.OnBar(be.Bar, be.Symbol)
}

// OnBar processes one bar: history, pnl rollover, position management,
// strategy signal, entry, then mark to market. The order is fixed.
func (e *Engine) OnBar(bar market.Bar, symbol string) error {
	e.history = append(e.history, bar)
	e.rollover(bar.Time)

	e.updatePositions(bar)

	sig, err := e.strat.GenerateSignals(Context{Bar: bar, Symbol: symbol, History: e.history})
	if err != nil {
		return fmt.Errorf("strategy %s: %w", e.strat.Name(), err)
	}
	if sig != nil {
		if d := risk.Evaluate(e.risk, e.cfg.Policy, e.pnlSnapshot()); !d.Allowed {
			e.log.WithFields(log.Fields{
				"time":       bar.Time,
				"violations": d.Codes(),
			}).Info("risk gate blocked entry")
		} else if err := e.processSignal(*sig, bar, symbol); err != nil {
			return err
		}
	}

	e.equity = append(e.equity, EquityPoint{Time: bar.Time, Equity: e.markToMarket(bar)})
	return nil
}

func (e *Engine) processSignal(sig Signal, bar market.Bar, symbol string) error {
	if sig.Direction != market.Long && sig.Direction != market.Short {
		return nil
	}

	entry := sig.Entry
	if entry == 0 {
		entry = bar.Close
	}
	stop := sig.Stop
	if stop == 0 {
		stop = entry
	}
	if !finite(entry) || !finite(stop) {
		return fmt.Errorf("%w: entry %v stop %v", ErrInvalidSignal, entry, stop)
	}

	var size float64
	if sig.Size != nil {
		size = *sig.Size
	} else {
		size = e.risk.SizePosition(e.cash, e.cfg.RiskPerTrade, entry, stop)
	}
	if sig.ATR != nil && sig.AverageATR != nil {
		size = risk.ScaleSize(size, e.risk.VolatilityScale(*sig.ATR, *sig.AverageATR))
	}
	if !(size > 0) || math.IsInf(size, 0) {
		e.log.WithFields(log.Fields{
			"time":  bar.Time,
			"entry": entry,
			"stop":  stop,
			"size":  size,
		}).Debug("skipping signal with no tradable size")
		return nil
	}

	if sig.Symbol != "" {
		symbol = sig.Symbol
	}

	order := broker.Order{
		Symbol:     symbol,
		Side:       broker.SideFor(sig.Direction),
		Quantity:   size,
		Kind:       broker.Market,
		LimitPrice: broker.Price(entry),
		Time:       bar.Time,
	}
	if _, err := e.venue.PlaceOrder(order); err != nil {
		return fmt.Errorf("entry order: %w", err)
	}

	fills := e.venue.FetchFills()
	if len(fills) == 0 {
		return nil
	}
	fill := fills[len(fills)-1]

	e.cash -= fill.Fees
	e.fees += fill.Fees

	p := newPosition(fill.OrderID, symbol, sig.Direction, fill.Price, stop, sig.Target, size, fill.Time, sig.Confluence)
	e.positions = append(e.positions, p)

	e.log.WithFields(log.Fields{
		"id":    p.ID,
		"side":  p.Side,
		"entry": p.Entry,
		"stop":  p.Stop,
		"size":  p.OriginalSize,
		"fees":  fill.Fees,
	}).Debug("position opened")
	return nil
}

func (e *Engine) markToMarket(bar market.Bar) float64 {
	equity := e.cash
	for _, p := range e.positions {
		equity += p.Unrealized(bar.Close)
	}
	return equity
}

func (e *Engine) rollover(t time.Time) {
	day := market.DayOf(t)
	week := market.WeekOf(t)
	if e.currentDay == nil || *e.currentDay != day {
		e.currentDay = &day
		e.dailyPnL = 0
	}
	if e.currentWeek == nil || *e.currentWeek != week {
		e.currentWeek = &week
		e.weeklyPnL = 0
	}
}

func (e *Engine) pnlSnapshot() risk.PnLSnapshot {
	return risk.PnLSnapshot{DayRealized: e.dailyPnL, WeekRealized: e.weeklyPnL}
}

// realize books pnl and the exit fee.
func (e *Engine) realize(pnl float64) float64 {
	fee := e.costs.FeePerTrade
	e.cash += pnl
	e.dailyPnL += pnl
	e.weeklyPnL += pnl
	e.cash -= fee
	e.fees += fee
	return fee
}

// Cash is the current cash balance.
func (e *Engine) Cash() float64 { return e.cash }

// InitialCapital is the starting cash.
func (e *Engine) InitialCapital() float64 { return e.cfg.InitialCapital }

// Fees is the total of entry and exit fees charged so far.
func (e *Engine) Fees() float64 { return e.fees }

// Equity is the last marked equity, or the cash balance before any bar.
func (e *Engine) Equity() float64 {
	if len(e.equity) == 0 {
		return e.cash
	}
	return e.equity[len(e.equity)-1].Equity
}

// Trades returns a copy of the trade ledger.
func (e *Engine) Trades() []TradeRecord {
	return append([]TradeRecord(nil), e.trades...)
}

// TradesSince returns the trades appended after the first n.
func (e *Engine) TradesSince(n int) []TradeRecord {
	if n >= len(e.trades) {
		return nil
	}
	return append([]TradeRecord(nil), e.trades[n:]...)
}

// EquityCurve returns a copy of the equity curve.
func (e *Engine) EquityCurve() []EquityPoint {
	return append([]EquityPoint(nil), e.equity...)
}

// Positions returns copies of the open positions.
func (e *Engine) Positions() []Position {
	out := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p.clone())
	}
	return out
}

// BarsProcessed is the length of the rolling history.
func (e *Engine) BarsProcessed() int { return len(e.history) }

// DailyReturns groups the equity curve by UTC day and returns
// (last-first)/first for each day in order. Days with a single point or a
// zero first value return 0.
func (e *Engine) DailyReturns() []float64 {
	var out []float64
	var (
		day         market.DayKey
		first, last float64
		n           int
	)
	flush := func() {
		switch {
		case n == 0:
			return
		case n < 2 || first == 0:
			out = append(out, 0)
		default:
			out = append(out, (last-first)/first)
		}
	}
	for _, pt := range e.equity {
		d := market.DayOf(pt.Time)
		if n > 0 && d != day {
			flush()
			n = 0
		}
		if n == 0 {
			day = d
			first = pt.Equity
		}
		last = pt.Equity
		n++
	}
	flush()
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
