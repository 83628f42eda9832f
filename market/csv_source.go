package market

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

var ErrNoBars = errors.New("no bars")

// Source loads validated, time-ordered bars for one instrument.
type Source interface {
	LoadOHLCV(symbol string, tf Timeframe, start, end time.Time) ([]Bar, error)
}

// csvBar is one row of a formatted OHLC file:
//
//	time_utc,open,high,low,close[,volume]
type csvBar struct {
	Time   string  `csv:"time_utc"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume string  `csv:"volume"`
}

// CSVSource reads bars from formatted CSV files. Files are resolved from
// Files first, then as <BasePath>/<symbol>_<base timeframe>_formatted.csv.
type CSVSource struct {
	BasePath      string
	Files         map[string]string
	BaseTimeframe Timeframe
}

func NewCSVSource(basePath string, base Timeframe) *CSVSource {
	if base == "" {
		base = "M30"
	}
	return &CSVSource{
		BasePath:      basePath,
		Files:         make(map[string]string),
		BaseTimeframe: base,
	}
}

func (s *CSVSource) path(symbol string) string {
	if p, ok := s.Files[symbol]; ok {
		return p
	}
	name := fmt.Sprintf("%s_%s_formatted.csv", strings.ToLower(symbol), strings.ToLower(string(s.BaseTimeframe)))
	return filepath.Join(s.BasePath, name)
}

// LoadOHLCV reads the symbol's file, keeps bars within [start, end] (zero
// bounds are open) and resamples when tf differs from the base timeframe.
func (s *CSVSource) LoadOHLCV(symbol string, tf Timeframe, start, end time.Time) ([]Bar, error) {
	bars, err := ReadCSVFile(s.path(symbol))
	if err != nil {
		return nil, err
	}
	bars = FilterRange(bars, start, end)

	if tf == "" || tf == s.BaseTimeframe {
		return bars, nil
	}
	if _, err := tf.Duration(); err != nil {
		return nil, err
	}
	return Resample(bars, tf)
}

// ReadCSVFile parses a formatted OHLC CSV file.
func ReadCSVFile(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars %s: %w", path, err)
	}
	defer f.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse bars %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoBars)
	}

	bars := make([]Bar, 0, len(rows))
	for i, r := range rows {
		t, err := ParseUTC(r.Time)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		b := Bar{Time: t, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close}
		if v := strings.TrimSpace(r.Volume); v != "" {
			b.Volume, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad volume %q: %w", path, i+2, r.Volume, err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// ParseUTC parses an ISO-8601 timestamp. A trailing Z or an explicit offset
// is honoured; naive timestamps are taken as UTC.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// FilterRange keeps bars with start <= time <= end. Zero bounds are ignored.
func FilterRange(bars []Bar, start, end time.Time) []Bar {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
