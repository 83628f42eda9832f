package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

// Timeframe names a bar granularity, e.g. "M30", "H1" or "D".
type Timeframe string

var timeframeMinutes = map[Timeframe]int{
	"M1":  1,
	"M5":  5,
	"M15": 15,
	"M30": 30,
	"H1":  60,
	"H4":  240,
	"D":   1440,
}

// Duration returns the length of one bar of the timeframe.
func (tf Timeframe) Duration() (time.Duration, error) {
	m, ok := timeframeMinutes[tf]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, string(tf))
	}
	return time.Duration(m) * time.Minute, nil
}

// Floor returns the open time of the tf bucket containing t.
func (tf Timeframe) Floor(t time.Time) (time.Time, error) {
	m, ok := timeframeMinutes[tf]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, string(tf))
	}
	t = t.UTC()
	y, mo, d := t.Date()
	if tf == "D" {
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
	}
	total := t.Hour()*60 + t.Minute()
	floored := (total / m) * m
	return time.Date(y, mo, d, floored/60, floored%60, 0, 0, time.UTC), nil
}

// Resample aggregates bars into tf buckets: open of the first bar, close of
// the last, highest high and lowest low. Volumes are summed.
func Resample(bars []Bar, tf Timeframe) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, nil
	}

	buckets := make(map[time.Time][]Bar)
	for _, b := range bars {
		key, err := tf.Floor(b.Time)
		if err != nil {
			return nil, err
		}
		buckets[key] = append(buckets[key], b)
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]Bar, 0, len(keys))
	for _, k := range keys {
		chunk := buckets[k]
		sort.SliceStable(chunk, func(i, j int) bool { return chunk[i].Time.Before(chunk[j].Time) })

		agg := Bar{
			Time:  k,
			Open:  chunk[0].Open,
			High:  chunk[0].High,
			Low:   chunk[0].Low,
			Close: chunk[len(chunk)-1].Close,
		}
		for _, c := range chunk {
			if c.High > agg.High {
				agg.High = c.High
			}
			if c.Low < agg.Low {
				agg.Low = c.Low
			}
			agg.Volume += c.Volume
		}
		out = append(out, agg)
	}
	return out, nil
}
