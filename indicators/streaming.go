package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// SimpleMA is a streaming Simple Moving Average of closes.
type SimpleMA struct {
	mean *RollingMean
}

func NewMA(period int) *SimpleMA {
	return &SimpleMA{mean: NewRollingMean(period)}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.mean.period)
}

func (m *SimpleMA) Warmup() int         { return m.mean.period }
func (m *SimpleMA) Reset()              { m.mean.Reset() }
func (m *SimpleMA) Update(b market.Bar) { m.mean.Add(b.Close) }
func (m *SimpleMA) Ready() bool         { return m.mean.Ready() }
func (m *SimpleMA) Value() float64      { return m.mean.Value() }

// ExponentialMA is a streaming Exponential Moving Average indicator
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(b market.Bar) {
	if e.count < e.period {
		// warmup: seed with the SMA
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (b.Close-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// RollingMean is the mean of the last period scalar values.
type RollingMean struct {
	period int
	values []float64
	next   int
	filled bool
	sum    float64
}

func NewRollingMean(period int) *RollingMean {
	if period <= 0 {
		period = 1
	}
	return &RollingMean{period: period, values: make([]float64, period)}
}

func (r *RollingMean) Add(v float64) {
	r.sum += v - r.values[r.next]
	r.values[r.next] = v
	r.next++
	if r.next == r.period {
		r.next = 0
		r.filled = true
	}
}

func (r *RollingMean) Ready() bool { return r.filled }

func (r *RollingMean) Value() float64 {
	if !r.filled {
		return 0
	}
	return r.sum / float64(r.period)
}

func (r *RollingMean) Reset() {
	for i := range r.values {
		r.values[i] = 0
	}
	r.next = 0
	r.filled = false
	r.sum = 0
}
