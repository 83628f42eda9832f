package broker

import (
	"errors"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// ErrNoPriceBasis is returned for a market order that carries neither a
// limit nor a stop price. The simulated venue is not quote driven, so one of
// the two has to be the fill basis.
var ErrNoPriceBasis = errors.New("market order requires a limit or stop price as fill basis")

// Venue is an execution venue. Fills are pulled, not pushed.
type Venue interface {
	PlaceOrder(o Order) (string, error)
	CancelOrder(id string)
	FetchFills() []Fill
}

// CostModel is implemented by venues that can report the per-trade costs the
// engine must apply to exits.
type CostModel interface {
	Costs() Costs
}

// Costs in basis points of price, plus a flat fee per trade.
type Costs struct {
	SlippageBps float64
	SpreadBps   float64
	FeePerTrade float64
}

// TotalBps is slippage plus spread.
func (c Costs) TotalBps() float64 {
	return c.SlippageBps + c.SpreadBps
}

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// SideFor maps a position direction to the side of its entry order.
func SideFor(s market.Side) OrderSide {
	if s == market.Short {
		return Sell
	}
	return Buy
}

type OrderKind string

const (
	Market OrderKind = "market"
	Limit  OrderKind = "limit"
	Stop   OrderKind = "stop"
)

// Order is immutable once submitted.
type Order struct {
	Symbol     string
	Side       OrderSide
	Quantity   float64
	Kind       OrderKind
	LimitPrice *float64
	StopPrice  *float64
	Time       time.Time // zero when unset
}

// Basis returns the price the venue fills against: the limit price, else the
// stop price.
func (o Order) Basis() (float64, bool) {
	if o.LimitPrice != nil && *o.LimitPrice != 0 {
		return *o.LimitPrice, true
	}
	if o.StopPrice != nil && *o.StopPrice != 0 {
		return *o.StopPrice, true
	}
	return 0, false
}

// Fill is produced exactly once per accepted order.
type Fill struct {
	OrderID string
	Order   Order
	Price   float64
	Fees    float64
	Cost    float64 // slippage + spread, in price units
	Time    time.Time
}

// Price is a convenience constructor for optional price fields.
func Price(p float64) *float64 { return &p }
