package indicators

import (
	"testing"

	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBars() []market.Bar {
	return []market.Bar{
		{Open: 100, High: 105, Low: 99, Close: 102},
		{Open: 102, High: 107, Low: 101, Close: 105},
		{Open: 105, High: 108, Low: 104, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 108},
		{Open: 108, High: 112, Low: 107, Close: 110},
		{Open: 110, High: 113, Low: 109, Close: 111},
		{Open: 111, High: 115, Low: 110, Close: 113},
		{Open: 113, High: 116, Low: 112, Close: 114},
		{Open: 114, High: 118, Low: 113, Close: 116},
		{Open: 116, High: 120, Low: 115, Close: 118},
	}
}

func TestMA(t *testing.T) {
	t.Parallel()

	ma, err := MA(createTestBars(), 5)
	require.NoError(t, err)
	// Last 5 closes: 111,113,114,116,118 => 572/5 = 114.4
	assert.InDelta(t, 114.4, ma, 0.001)

	_, err = MA(createTestBars(), 0)
	assert.Error(t, err)
	_, err = MA(createTestBars()[:3], 5)
	assert.Error(t, err)
}

func TestEMA(t *testing.T) {
	t.Parallel()

	ema, err := EMA(createTestBars(), 5)
	require.NoError(t, err)
	assert.Greater(t, ema, 110.0)
	assert.Less(t, ema, 118.0)
}

func TestStreamingMAMatchesBatch(t *testing.T) {
	t.Parallel()

	bars := createTestBars()
	m := NewMA(5)
	for i, b := range bars {
		m.Update(b)
		assert.Equal(t, i >= 4, m.Ready())
	}
	want, err := MA(bars, 5)
	require.NoError(t, err)
	assert.InDelta(t, want, m.Value(), 1e-9)
	assert.Equal(t, "MA(5)", m.Name())

	m.Reset()
	assert.False(t, m.Ready())
	assert.Equal(t, 0.0, m.Value())
}

func TestStreamingEMAMatchesBatch(t *testing.T) {
	t.Parallel()

	bars := createTestBars()
	e := NewEMA(5)
	for _, b := range bars {
		e.Update(b)
	}
	want, err := EMA(bars, 5)
	require.NoError(t, err)
	assert.InDelta(t, want, e.Value(), 1e-9)
}

func TestATR(t *testing.T) {
	t.Parallel()

	bars := createTestBars()

	a := NewATR(3)
	for _, b := range bars[:3] {
		a.Update(b)
	}
	assert.False(t, a.Ready())
	assert.Equal(t, 0.0, a.Value())

	a.Update(bars[3])
	require.True(t, a.Ready())
	// TRs: 6, 4, 5 -> 5
	assert.InDelta(t, 5.0, a.Value(), 1e-9)

	a.Update(bars[4])
	// TR 5 -> (5*2+5)/3 = 5
	assert.InDelta(t, 5.0, a.Value(), 1e-9)

	got, err := ATRFunc(bars, 3)
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)

	_, err = ATRFunc(bars[:2], 3)
	assert.Error(t, err)
}

func TestRollingMean(t *testing.T) {
	t.Parallel()

	r := NewRollingMean(3)
	r.Add(1)
	r.Add(2)
	assert.False(t, r.Ready())
	r.Add(3)
	assert.True(t, r.Ready())
	assert.InDelta(t, 2.0, r.Value(), 1e-12)
	r.Add(10)
	assert.InDelta(t, 5.0, r.Value(), 1e-12)
}
