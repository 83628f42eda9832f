package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const tradeSelect = `
		SELECT trade_id, run_id, position_id, symbol, side, size, entry_price, exit_price, stop,
		       target, open_time, close_time, realized_pl, fees, r_multiple, reason
		FROM trades`

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	rows, err := j.db.Query(tradeSelect+` WHERE trade_id = ?`, tradeID)
	if err != nil {
		return TradeRecord{}, err
	}
	out, err := scanTrades(rows)
	if err != nil {
		return TradeRecord{}, err
	}
	if len(out) == 0 {
		return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return out[0], nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(tradeSelect+`
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// ListEquityBetween returns equity points within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, equity, drawdown
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanEquity(rows)
}

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec            TradeRecord
			target, rMulti sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.PositionID,
			&rec.Symbol,
			&rec.Side,
			&rec.Size,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.Stop,
			&target,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.Fees,
			&rMulti,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.Target = fromNull(target)
		rec.RMultiple = fromNull(rMulti)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEquity(rows *sql.Rows) ([]EquitySnapshot, error) {
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity, &e.Drawdown); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
