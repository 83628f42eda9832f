package market

import "time"

// DayKey identifies a UTC calendar day.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// WeekKey identifies an ISO week.
type WeekKey struct {
	Year int
	Week int
}

func DayOf(t time.Time) DayKey {
	y, m, d := t.UTC().Date()
	return DayKey{Year: y, Month: m, Day: d}
}

func WeekOf(t time.Time) WeekKey {
	y, w := t.UTC().ISOWeek()
	return WeekKey{Year: y, Week: w}
}
