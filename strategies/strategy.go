package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/backtester/backtest"
)

// Params are the tunables shared by the built-in strategies. A zero field
// means "use the strategy default".
type Params struct {
	MAFast           int     `yaml:"ma_fast" json:"ma_fast"`
	MASlow           int     `yaml:"ma_slow" json:"ma_slow"`
	StopPct          float64 `yaml:"stop_pct" json:"stop_pct"`
	TargetMultiple   float64 `yaml:"target_multiple" json:"target_multiple"`
	CooldownBars     int     `yaml:"cooldown_bars" json:"cooldown_bars"`
	ATRPeriod        int     `yaml:"atr_period" json:"atr_period"`
	RandomSeed       int64   `yaml:"random_seed" json:"random_seed"`
	TradeProbability float64 `yaml:"trade_probability" json:"trade_probability"`

	// Optional ADX trend filter for ma-cross; disabled when ADXMin is 0.
	ADXPeriod int     `yaml:"adx_period,omitempty" json:"adx_period,omitempty"`
	ADXMin    float64 `yaml:"adx_min,omitempty" json:"adx_min,omitempty"`
}

// DefaultParams returns the defaults the CLI writes into a new config.
func DefaultParams() Params {
	return Params{
		MAFast:           20,
		MASlow:           50,
		StopPct:          0.002,
		TargetMultiple:   2.0,
		ATRPeriod:        14,
		RandomSeed:       42,
		TradeProbability: 0.02,
	}
}

// Factory builds a fresh strategy instance. Strategies carry per-run state,
// so every run needs its own.
type Factory func(p Params) (backtest.Strategy, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func init() {
	Register("noop", func(Params) (backtest.Strategy, error) { return NoopStrategy{}, nil })
	Register("buy-hold", func(Params) (backtest.Strategy, error) { return &BuyHold{}, nil })
	Register("ma-cross", func(p Params) (backtest.Strategy, error) { return NewMACross(p) })
	Register("random", func(p Params) (backtest.Strategy, error) { return NewRandomBaseline(p) })
}

// Register adds or replaces a named strategy factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(name)] = f
}

// Names lists the registered strategies, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StrategyByName builds a new instance of the named strategy.
func StrategyByName(name string, p Params) (backtest.Strategy, error) {
	mu.RLock()
	f, ok := registry[normalize(name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "none":
		return "noop"
	case "buyhold", "buy-and-hold":
		return "buy-hold"
	case "macross", "ma-crossover":
		return "ma-cross"
	case "random-baseline":
		return "random"
	}
	return n
}

// projectTarget places the target multiple times the stop distance beyond
// entry.
func projectTarget(entry, stop, multiple float64) float64 {
	return entry + (entry-stop)*multiple
}
