package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "run_id", "position_id", "symbol", "side", "size", "entry_price", "exit_price", "stop", "target", "open_time", "close_time", "realized_pl", "fees", "r_multiple", "reason"}
	equityHeader = []string{"run_id", "time", "equity", "drawdown"}
)

// CSVJournal streams trades and equity points to two CSV files. Rows are
// flushed as they are written so a crashed run still leaves a readable file.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{trades: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}
	if err := j.write(j.trades, tradeHeader); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("write %s header: %w", tradesPath, err)
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("write %s header: %w", equityPath, err)
	}
	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.TradeID,
		t.RunID,
		t.PositionID,
		t.Symbol,
		t.Side,
		f(t.Size),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.Stop),
		opt(t.Target),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.Fees),
		opt(t.RMultiple),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		f(e.Equity),
		f(e.Drawdown),
	})
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func opt(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}
