package broker

import (
	"testing"

	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
)

func TestOrderBasis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order Order
		want  float64
		ok    bool
	}{
		{"limit", Order{LimitPrice: Price(1.1)}, 1.1, true},
		{"stop", Order{StopPrice: Price(1.2)}, 1.2, true},
		{"limit wins", Order{LimitPrice: Price(1.1), StopPrice: Price(1.2)}, 1.1, true},
		{"zero limit falls back", Order{LimitPrice: Price(0), StopPrice: Price(1.2)}, 1.2, true},
		{"none", Order{}, 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.order.Basis()
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestSideFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Buy, SideFor(market.Long))
	assert.Equal(t, Sell, SideFor(market.Short))
}

func TestCostsTotalBps(t *testing.T) {
	t.Parallel()

	c := Costs{SlippageBps: 0.5, SpreadBps: 1.0, FeePerTrade: 2}
	assert.InDelta(t, 1.5, c.TotalBps(), 1e-12)
}
