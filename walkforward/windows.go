package walkforward

import (
	"fmt"
	"time"
)

// Window is one train/test split. Both halves are half-open: bars with
// Start <= t < End.
type Window struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s -> %s | %s -> %s",
		w.TrainStart.Format("2006-01-02"), w.TrainEnd.Format("2006-01-02"),
		w.TestStart.Format("2006-01-02"), w.TestEnd.Format("2006-01-02"))
}

// AddMonths moves t by n calendar months. The day is clamped to 28 so the
// result never spills into the following month.
func AddMonths(t time.Time, n int) time.Time {
	m := int(t.Month()) - 1 + n
	year := t.Year() + m/12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	day := t.Day()
	if day > 28 {
		day = 28
	}
	return time.Date(year, time.Month(m+1), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// SplitWindows rolls a train+test window from start in steps of stepMonths
// until the test period would run past end.
func SplitWindows(start, end time.Time, trainMonths, testMonths, stepMonths int) ([]Window, error) {
	if trainMonths <= 0 || testMonths <= 0 || stepMonths <= 0 {
		return nil, fmt.Errorf("walkforward: train (%d), test (%d) and step (%d) months must be positive",
			trainMonths, testMonths, stepMonths)
	}

	var out []Window
	for cursor := start; ; cursor = AddMonths(cursor, stepMonths) {
		trainEnd := AddMonths(cursor, trainMonths)
		testEnd := AddMonths(trainEnd, testMonths)
		if testEnd.After(end) {
			break
		}
		out = append(out, Window{
			TrainStart: cursor,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
		})
	}
	return out, nil
}
