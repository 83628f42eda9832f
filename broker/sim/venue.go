// Package sim is a simulated execution venue. Orders fill immediately
// against their own price basis, adjusted for slippage and spread.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/backtester/broker"
)

type Venue struct {
	mu    sync.Mutex
	costs broker.Costs
	fills []broker.Fill
	seq   int
}

func NewVenue(c broker.Costs) *Venue {
	return &Venue{costs: c}
}

func (v *Venue) Costs() broker.Costs { return v.costs }

// PlaceOrder fills o at basis ± basis*(slippage+spread)/10000: buys pay more,
// sells receive less. The fill is buffered until FetchFills.
func (v *Venue) PlaceOrder(o broker.Order) (string, error) {
	basis, ok := o.Basis()
	if !ok {
		return "", fmt.Errorf("place %s %s order for %s: %w", o.Kind, o.Side, o.Symbol, broker.ErrNoPriceBasis)
	}

	cost := basis * v.costs.TotalBps() / 10000.0
	price := basis + cost
	if o.Side == broker.Sell {
		price = basis - cost
	}

	t := o.Time
	if t.IsZero() {
		t = time.Now().UTC()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	id := fmt.Sprintf("sim-%d", v.seq)
	v.fills = append(v.fills, broker.Fill{
		OrderID: id,
		Order:   o,
		Price:   price,
		Fees:    v.costs.FeePerTrade,
		Cost:    cost,
		Time:    t,
	})
	return id, nil
}

// CancelOrder is a no-op: the venue never holds resting orders.
func (v *Venue) CancelOrder(id string) {}

// FetchFills drains the fill buffer.
func (v *Venue) FetchFills() []broker.Fill {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := v.fills
	v.fills = nil
	return out
}
