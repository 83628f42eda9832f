package sim

import (
	"testing"
	"time"

	"github.com/rustyeddy/backtester/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketOrder(side broker.OrderSide, basis float64) broker.Order {
	return broker.Order{
		Symbol:     "EUR_USD",
		Side:       side,
		Quantity:   1,
		Kind:       broker.Market,
		LimitPrice: broker.Price(basis),
		Time:       time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestPlaceOrderFillPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		side broker.OrderSide
		want float64
	}{
		// 10000 * (1 + 2) / 10000 = 3
		{"buy pays more", broker.Buy, 10003},
		{"sell receives less", broker.Sell, 9997},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := NewVenue(broker.Costs{SlippageBps: 1, SpreadBps: 2, FeePerTrade: 1.5})
			id, err := v.PlaceOrder(marketOrder(tt.side, 10000))
			require.NoError(t, err)
			assert.Equal(t, "sim-1", id)

			fills := v.FetchFills()
			require.Len(t, fills, 1)
			assert.InDelta(t, tt.want, fills[0].Price, 1e-9)
			assert.InDelta(t, 3.0, fills[0].Cost, 1e-9)
			assert.Equal(t, 1.5, fills[0].Fees)
			assert.Equal(t, id, fills[0].OrderID)
			assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), fills[0].Time)
		})
	}
}

func TestPlaceOrderStopBasis(t *testing.T) {
	t.Parallel()

	v := NewVenue(broker.Costs{})
	_, err := v.PlaceOrder(broker.Order{Side: broker.Buy, Kind: broker.Market, StopPrice: broker.Price(1.25)})
	require.NoError(t, err)

	fills := v.FetchFills()
	require.Len(t, fills, 1)
	assert.Equal(t, 1.25, fills[0].Price)
	assert.False(t, fills[0].Time.IsZero())
}

func TestPlaceOrderWithoutBasis(t *testing.T) {
	t.Parallel()

	v := NewVenue(broker.Costs{})
	_, err := v.PlaceOrder(broker.Order{Symbol: "EUR_USD", Side: broker.Buy, Kind: broker.Market})
	assert.ErrorIs(t, err, broker.ErrNoPriceBasis)
	assert.Empty(t, v.FetchFills())
}

func TestFetchFillsDrains(t *testing.T) {
	t.Parallel()

	v := NewVenue(broker.Costs{})
	id1, err := v.PlaceOrder(marketOrder(broker.Buy, 1.1))
	require.NoError(t, err)
	id2, err := v.PlaceOrder(marketOrder(broker.Sell, 1.2))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	fills := v.FetchFills()
	assert.Len(t, fills, 2)
	assert.Empty(t, v.FetchFills())

	v.CancelOrder(id1)
	assert.Empty(t, v.FetchFills())
}

func TestVenueImplementsInterfaces(t *testing.T) {
	t.Parallel()

	var v broker.Venue = NewVenue(broker.Costs{FeePerTrade: 2})
	cm, ok := v.(broker.CostModel)
	require.True(t, ok)
	assert.Equal(t, 2.0, cm.Costs().FeePerTrade)
}
