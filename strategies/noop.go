package strategies

import "github.com/rustyeddy/backtester/backtest"

// NoopStrategy does nothing.
type NoopStrategy struct{}

func (NoopStrategy) Name() string { return "noop" }

func (NoopStrategy) IdentifySetup(backtest.Context) bool { return false }

func (NoopStrategy) ValidateContext(backtest.Context) bool { return true }

func (NoopStrategy) GenerateSignals(backtest.Context) (*backtest.Signal, error) {
	return nil, nil
}
