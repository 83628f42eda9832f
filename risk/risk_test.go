package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		equity float64
		frac   float64
		entry  float64
		stop   float64
		want   float64
	}{
		{"long", 10000, 0.01, 1.1000, 1.0950, 20000},
		{"short", 10000, 0.01, 1.0950, 1.1000, 20000},
		{"degenerate stop", 10000, 0.01, 1.1, 1.1, 0},
		{"zero equity", 0, 0.01, 1.1, 1.0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, SizePosition(tt.equity, tt.frac, tt.entry, tt.stop), 1e-6)
		})
	}
}

func TestSizePositionDegenerateIsExactlyZero(t *testing.T) {
	t.Parallel()

	got := SizePosition(10000, 0.02, 1.2345, 1.2345)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.IsInf(got, 0))
}

func TestVolatilityScale(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, VolatilityScale(0.002, 0))
	assert.Equal(t, 1.0, VolatilityScale(0.002, -1))
	assert.InDelta(t, 2.0, VolatilityScale(0.002, 0.001), 1e-12)
	assert.InDelta(t, 0.5, VolatilityScale(0.001, 0.002), 1e-12)
}

func TestScaleSize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, ScaleSize(100, 2), 1e-12)
	assert.InDelta(t, 100/MinVolatilityMultiplier, ScaleSize(100, 0), 1e-6)
}

func TestLimits(t *testing.T) {
	t.Parallel()

	assert.True(t, DailyLimitOK(1e9, nil))
	assert.True(t, DailyLimitOK(100, Limit(100)))
	assert.False(t, DailyLimitOK(100.01, Limit(100)))
	assert.True(t, WeeklyLimitOK(1e9, nil))
	assert.False(t, WeeklyLimitOK(300, Limit(250)))
}

func TestPartialExitPolicy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTrailPercentage, Standard{}.PartialExitPolicy(1.1, 1.095, 1.11).TrailPercentage)
	assert.Equal(t, 0.5, Standard{TrailPercentage: 0.5}.PartialExitPolicy(1.1, 1.095, 1.11).TrailPercentage)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	m := Standard{}

	d := Evaluate(m, Policy{}, PnLSnapshot{DayRealized: -1e6, WeekRealized: -1e6})
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Violations)

	p := Policy{MaxDailyRisk: Limit(100), MaxWeeklyRisk: Limit(250)}

	d = Evaluate(m, p, PnLSnapshot{DayRealized: 50, WeekRealized: -250})
	assert.True(t, d.Allowed)

	d = Evaluate(m, p, PnLSnapshot{DayRealized: -150, WeekRealized: -150})
	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"DAILY_LOSS_LIMIT"}, d.Codes())

	d = Evaluate(m, p, PnLSnapshot{DayRealized: -150, WeekRealized: -300})
	assert.Equal(t, []string{"DAILY_LOSS_LIMIT", "WEEKLY_LOSS_LIMIT"}, d.Codes())
}

func TestPnLSnapshotLoss(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, PnLSnapshot{DayRealized: 10}.DayLoss())
	assert.Equal(t, 10.0, PnLSnapshot{DayRealized: -10}.DayLoss())
	assert.Equal(t, 0.0, PnLSnapshot{WeekRealized: 5}.WeekLoss())
	assert.Equal(t, 5.0, PnLSnapshot{WeekRealized: -5}.WeekLoss())
}

func TestCalc(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(1.1000, 1.0950, 1.1100), 1e-9)
	assert.Equal(t, 0.0, RR(1.1, 1.1, 1.2))
	assert.InDelta(t, 50.0, PlannedRisk(10000, 1.1000, 1.0950), 1e-9)

	r, ok := RMultiple(-0.005, 1.1000, 1.0950, 1)
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)

	_, ok = RMultiple(1, 1.1, 1.1, 1)
	assert.False(t, ok)

	assert.True(t, math.IsInf(RiskPct(10, 0), 1))
	assert.InDelta(t, 0.01, RiskPct(100, 10000), 1e-12)
}
