package strategies

import (
	"math/rand"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
)

// RandomBaseline enters in a random direction with probability
// TradeProbability per bar, at most once per UTC day and no sooner than
// CooldownBars after its last entry. The same seed reproduces the same
// run.
type RandomBaseline struct {
	rng            *rand.Rand
	probability    float64
	stopPct        float64
	targetMultiple float64
	cooldown       int

	bars      int
	lastEntry int
	lastDay   *market.DayKey
}

func NewRandomBaseline(p Params) (*RandomBaseline, error) {
	d := DefaultParams()
	if p.RandomSeed == 0 {
		p.RandomSeed = d.RandomSeed
	}
	if p.TradeProbability <= 0 {
		p.TradeProbability = d.TradeProbability
	}
	if p.StopPct <= 0 {
		p.StopPct = d.StopPct
	}
	if p.TargetMultiple <= 0 {
		p.TargetMultiple = d.TargetMultiple
	}
	if p.CooldownBars <= 0 {
		p.CooldownBars = 24
	}

	return &RandomBaseline{
		rng:            rand.New(rand.NewSource(p.RandomSeed)),
		probability:    p.TradeProbability,
		stopPct:        p.StopPct,
		targetMultiple: p.TargetMultiple,
		cooldown:       p.CooldownBars,
		lastEntry:      -10000,
	}, nil
}

func (s *RandomBaseline) Name() string { return "random" }

func (s *RandomBaseline) IdentifySetup(backtest.Context) bool { return true }

func (s *RandomBaseline) ValidateContext(ctx backtest.Context) bool { return len(ctx.History) > 0 }

func (s *RandomBaseline) GenerateSignals(ctx backtest.Context) (*backtest.Signal, error) {
	bar := ctx.Bar
	s.bars++

	if s.bars-s.lastEntry < s.cooldown {
		return nil, nil
	}
	day := market.DayOf(bar.Time)
	if s.lastDay != nil && *s.lastDay == day {
		return nil, nil
	}
	if s.rng.Float64() > s.probability {
		return nil, nil
	}

	dir := market.Short
	if s.rng.Float64() >= 0.5 {
		dir = market.Long
	}

	entry := bar.Close
	dist := entry * s.stopPct
	if dist <= 0 {
		return nil, nil
	}
	stop := entry - float64(dir)*dist
	target := projectTarget(entry, stop, s.targetMultiple)

	s.lastEntry = s.bars
	s.lastDay = &day
	return &backtest.Signal{
		Direction: dir,
		Entry:     entry,
		Stop:      stop,
		Target:    &target,
	}, nil
}
