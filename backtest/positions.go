package backtest

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

// updatePositions runs the exit state machine for every open position
// against bar, before the strategy is consulted.
func (e *Engine) updatePositions(bar market.Bar) {
	remaining := e.positions[:0]
	for _, p := range e.positions {
		if e.cfg.PartialExit {
			e.maybePartialExit(p, bar)
		}
		if !p.IsOpen() {
			continue
		}

		exit, reason, hit := e.checkExit(p, bar)
		if !hit {
			remaining = append(remaining, p)
			continue
		}
		e.closeRemaining(p, bar, e.applyExitCosts(exit, p.Side), reason)
	}
	// Clear the tail so closed positions can be collected.
	for i := len(remaining); i < len(e.positions); i++ {
		e.positions[i] = nil
	}
	e.positions = remaining
}

// checkExit evaluates stop and target on one bar. When both are touched the
// stop wins and the target is never credited.
func (e *Engine) checkExit(p *Position, bar market.Bar) (exit float64, reason string, hit bool) {
	var stopHit, targetHit bool
	switch p.Side {
	case market.Long:
		stopHit = atOrBelow(bar.Low, p.Stop)
		targetHit = p.Target != nil && atOrAbove(bar.High, *p.Target)
	case market.Short:
		stopHit = atOrAbove(bar.High, p.Stop)
		targetHit = p.Target != nil && atOrBelow(bar.Low, *p.Target)
	}

	switch {
	case stopHit && targetHit:
		return e.stopWithSlippage(p), ReasonStopAndTake, true
	case stopHit:
		return e.stopWithSlippage(p), ReasonStop, true
	case targetHit:
		return *p.Target, ReasonTarget, true
	}
	return 0, "", false
}

// priceTolerance is the relative rounding slack allowed when a bar extreme
// is compared with a derived price level such as 1R.
const priceTolerance = 1e-9

// atOrAbove reports whether price reached level from below.
func atOrAbove(price, level float64) bool {
	return price >= level-priceTolerance*math.Abs(level)
}

// atOrBelow reports whether price reached level from above.
func atOrBelow(price, level float64) bool {
	return price <= level+priceTolerance*math.Abs(level)
}

// stopWithSlippage moves the stop price against the position by
// StopSlippagePips per 10000 of price.
func (e *Engine) stopWithSlippage(p *Position) float64 {
	slip := e.cfg.StopSlippagePips * p.Stop / 10000.0
	if p.Side == market.Long {
		return p.Stop - slip
	}
	return p.Stop + slip
}

// applyExitCosts moves an exit price against side by slippage+spread bps.
func (e *Engine) applyExitCosts(price float64, side market.Side) float64 {
	bps := e.costs.TotalBps()
	if bps <= 0 {
		return price
	}
	adj := price * bps / 10000.0
	if side == market.Long {
		return price - adj
	}
	return price + adj
}

// maybePartialExit closes the configured share of the original size at 1R,
// moves the stop to breakeven and seeds the trailing reference. After the
// partial exit it only trails.
func (e *Engine) maybePartialExit(p *Position, bar market.Bar) {
	if p.PartialExitDone {
		e.trailStop(p, bar)
		return
	}

	r := p.Entry - p.Stop
	if p.Side == market.Short {
		r = -r
	}
	if r <= 0 {
		return
	}

	oneR := p.Entry + float64(p.Side)*r
	var reached bool
	if p.Side == market.Long {
		reached = atOrAbove(bar.High, oneR)
	} else {
		reached = atOrBelow(bar.Low, oneR)
	}
	if !reached {
		return
	}

	target := oneR
	if p.Target != nil {
		target = *p.Target
	}
	pct := e.risk.PartialExitPolicy(p.Entry, p.Stop, target).TrailPercentage

	size := p.OriginalSize * pct
	if size > p.RemainingSize {
		size = p.RemainingSize
	}
	if size <= 0 {
		return
	}

	exit := e.applyExitCosts(oneR, p.Side)
	pnl := p.PnL(exit, size)
	fee := e.realize(pnl)

	e.trades = append(e.trades, TradeRecord{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryTime:  p.OpenTime,
		ExitTime:   bar.Time,
		EntryPrice: p.Entry,
		ExitPrice:  exit,
		Size:       size,
		PnL:        pnl,
		Fees:       fee,
		Stop:       p.Stop,
		Target:     copyFloat(p.Target),
		Confluence: copyFloat(p.Confluence),
		Reason:     ReasonPartial,
	})

	p.RemainingSize -= size
	p.PartialExitDone = true
	p.Stop = p.Entry
	trail := bar.Low
	if p.Side == market.Short {
		trail = bar.High
	}
	p.TrailStop = &trail
	if p.RemainingSize <= sizeEpsilon {
		p.RemainingSize = 0
		e.markClosed(p, bar, exit)
	}

	e.log.WithFields(log.Fields{
		"id":        p.ID,
		"size":      size,
		"exit":      exit,
		"pnl":       pnl,
		"remaining": p.RemainingSize,
	}).Debug("partial exit at 1R")
}

// trailStop ratchets the trailing reference with the bar extreme and pulls
// the stop to it when that tightens the stop. The stop never loosens.
func (e *Engine) trailStop(p *Position, bar market.Bar) {
	if p.TrailStop == nil {
		return
	}
	trail := *p.TrailStop
	before := p.Stop

	if p.Side == market.Long {
		if bar.Low > trail {
			trail = bar.Low
		}
		if trail > p.Stop {
			p.Stop = trail
		}
	} else {
		if bar.High < trail {
			trail = bar.High
		}
		if trail < p.Stop {
			p.Stop = trail
		}
	}
	p.TrailStop = &trail

	if p.Stop != before {
		e.log.WithFields(log.Fields{"id": p.ID, "stop": p.Stop}).Debug("stop trailed")
	}
}

// closeRemaining realizes the rest of the position at exit.
func (e *Engine) closeRemaining(p *Position, bar market.Bar, exit float64, reason string) {
	size := p.RemainingSize
	pnl := p.PnL(exit, size)
	fee := e.realize(pnl)

	var rm *float64
	if r, ok := risk.RMultiple(pnl, p.Entry, p.Stop, size); ok {
		rm = &r
	}

	e.trades = append(e.trades, TradeRecord{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryTime:  p.OpenTime,
		ExitTime:   bar.Time,
		EntryPrice: p.Entry,
		ExitPrice:  exit,
		Size:       size,
		PnL:        pnl,
		Fees:       fee,
		Stop:       p.Stop,
		Target:     copyFloat(p.Target),
		RMultiple:  rm,
		Confluence: copyFloat(p.Confluence),
		Reason:     reason,
	})

	p.RemainingSize = 0
	e.markClosed(p, bar, exit)

	e.log.WithFields(log.Fields{
		"id":     p.ID,
		"reason": reason,
		"exit":   exit,
		"pnl":    pnl,
	}).Debug("position closed")
}

func (e *Engine) markClosed(p *Position, bar market.Bar, exit float64) {
	t := bar.Time
	p.CloseTime = &t
	p.ExitPrice = &exit
}
