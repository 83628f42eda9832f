package strategies

import (
	"fmt"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
)

// MACross trades a fast/slow SMA crossover.
//   - Enters only on cross, long on a bull cross, short on a bear cross
//   - Stop is StopPct of the entry away, target is TargetMultiple R
//   - At least CooldownBars bars between signals
//   - Attaches ATR and its rolling average once warmed up so the engine can
//     scale size by volatility
//   - With ADXMin set, a cross is taken only when ADX is ready, at least
//     ADXMin, and the directional indicators agree with the cross
type MACross struct {
	fastPeriod     int
	slowPeriod     int
	stopPct        float64
	targetMultiple float64
	cooldown       int

	fast *indicators.SimpleMA
	slow *indicators.SimpleMA
	atr  *indicators.ATR
	avg  *indicators.RollingMean
	adx  *indicators.ADX

	adxMin float64

	lastDiff     float64
	haveLastDiff bool
	lastSignal   int
	bars         int
}

func NewMACross(p Params) (*MACross, error) {
	d := DefaultParams()
	if p.MAFast <= 0 {
		p.MAFast = d.MAFast
	}
	if p.MASlow <= 0 {
		p.MASlow = d.MASlow
	}
	if p.StopPct <= 0 {
		p.StopPct = d.StopPct
	}
	if p.TargetMultiple <= 0 {
		p.TargetMultiple = d.TargetMultiple
	}
	if p.CooldownBars <= 0 {
		p.CooldownBars = 1
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.ADXMin < 0 {
		return nil, fmt.Errorf("ma-cross: adx_min (%.1f) must not be negative", p.ADXMin)
	}
	if p.ADXPeriod <= 0 {
		p.ADXPeriod = 14
	}
	if p.MAFast >= p.MASlow {
		return nil, fmt.Errorf("ma-cross: ma_fast (%d) must be less than ma_slow (%d)", p.MAFast, p.MASlow)
	}

	s := &MACross{
		fastPeriod:     p.MAFast,
		slowPeriod:     p.MASlow,
		stopPct:        p.StopPct,
		targetMultiple: p.TargetMultiple,
		cooldown:       p.CooldownBars,
		fast:           indicators.NewMA(p.MAFast),
		slow:           indicators.NewMA(p.MASlow),
		atr:            indicators.NewATR(p.ATRPeriod),
		avg:            indicators.NewRollingMean(p.MASlow),
		lastSignal:     -10000,
	}
	if p.ADXMin > 0 {
		s.adx = indicators.NewADX(p.ADXPeriod)
		s.adxMin = p.ADXMin
	}
	return s, nil
}

func (s *MACross) Name() string {
	if s.adx != nil {
		return fmt.Sprintf("ma-cross(%d,%d,%s>=%g)", s.fastPeriod, s.slowPeriod, s.adx.Name(), s.adxMin)
	}
	return fmt.Sprintf("ma-cross(%d,%d)", s.fastPeriod, s.slowPeriod)
}

func (s *MACross) IdentifySetup(backtest.Context) bool { return true }

func (s *MACross) ValidateContext(ctx backtest.Context) bool {
	return len(ctx.History) > 0 && ctx.Bar.Valid()
}

// GenerateSignals must see every bar exactly once, in order.
func (s *MACross) GenerateSignals(ctx backtest.Context) (*backtest.Signal, error) {
	bar := ctx.Bar
	s.bars++
	s.fast.Update(bar)
	s.slow.Update(bar)
	s.atr.Update(bar)
	if s.atr.Ready() {
		s.avg.Add(s.atr.Value())
	}
	if s.adx != nil {
		s.adx.Update(bar)
	}

	// Wait until both averages are warmed up.
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil, nil
	}

	diff := s.fast.Value() - s.slow.Value()

	// Need a previous diff to detect a cross.
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil, nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	if s.bars-s.lastSignal < s.cooldown {
		return nil, nil
	}

	var dir market.Side
	switch {
	case bullCross:
		dir = market.Long
	case bearCross:
		dir = market.Short
	default:
		return nil, nil
	}
	if !s.trending(dir) {
		return nil, nil
	}

	entry := bar.Close
	dist := entry * s.stopPct
	if dist <= 0 {
		return nil, nil
	}
	stop := entry - float64(dir)*dist
	target := projectTarget(entry, stop, s.targetMultiple)

	s.lastSignal = s.bars
	sig := &backtest.Signal{
		Direction: dir,
		Entry:     entry,
		Stop:      stop,
		Target:    &target,
	}
	if s.atr.Ready() && s.avg.Ready() {
		sig.ATR = backtest.Float(s.atr.Value())
		sig.AverageATR = backtest.Float(s.avg.Value())
	}
	return sig, nil
}

// trending applies the ADX filter. It always passes when the filter is off.
func (s *MACross) trending(dir market.Side) bool {
	if s.adx == nil {
		return true
	}
	if !s.adx.Ready() || s.adx.Value() < s.adxMin {
		return false
	}
	if dir == market.Long {
		return s.adx.PlusDI() > s.adx.MinusDI()
	}
	return s.adx.MinusDI() > s.adx.PlusDI()
}
