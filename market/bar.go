package market

import "time"

// Bar is one OHLC price sample for a fixed interval. Bars are owned by the
// feed and only borrowed by the engine.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // optional, 0 when the source has none
}

// Valid reports whether the OHLC values are internally consistent.
func (b Bar) Valid() bool {
	return b.High >= b.Open && b.High >= b.Close &&
		b.Low <= b.Open && b.Low <= b.Close
}

// Side is the direction of a position: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return "none"
}

// ParseSide accepts "long"/"buy" and "short"/"sell".
func ParseSide(s string) (Side, bool) {
	switch s {
	case "long", "buy":
		return Long, true
	case "short", "sell":
		return Short, true
	}
	return 0, false
}
