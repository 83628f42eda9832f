package strategies

import (
	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
)

// BuyHold goes long once at the first close with a stop 5% below and a
// size of 1. It's meant as a benchmark.
type BuyHold struct {
	entered bool
}

func (s *BuyHold) Name() string { return "buy-hold" }

func (s *BuyHold) IdentifySetup(backtest.Context) bool { return !s.entered }

func (s *BuyHold) ValidateContext(backtest.Context) bool { return true }

func (s *BuyHold) GenerateSignals(ctx backtest.Context) (*backtest.Signal, error) {
	if s.entered {
		return nil, nil
	}
	s.entered = true

	c := ctx.Bar.Close
	return &backtest.Signal{
		Direction: market.Long,
		Entry:     c,
		Stop:      c * 0.95,
		Size:      backtest.Float(1.0),
	}, nil
}
