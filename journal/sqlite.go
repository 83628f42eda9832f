package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, position_id, symbol, side, size, entry_price, exit_price, stop, target,
		 open_time, close_time, realized_pl, fees, r_multiple, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.PositionID, t.Symbol, t.Side, t.Size, t.EntryPrice, t.ExitPrice,
		t.Stop, nullFloat(t.Target), t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Fees,
		nullFloat(t.RMultiple), t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity, drawdown)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Equity, e.Drawdown,
	)
	return err
}

// RecordBacktest inserts or replaces the run summary.
func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, symbol, timeframe, dataset, strategy, config, risk_pct, start_time, end_time,
		 trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate,
		 profit_factor, max_dd_pct, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Symbol, r.Timeframe, r.Dataset, r.Strategy, r.Config, r.RiskPct,
		r.Start.UTC(), r.End.UTC(), r.Trades, r.Wins, r.Losses, r.StartBalance, r.EndBalance,
		r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct, r.Sharpe,
	)
	return err
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var r BacktestRun
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, symbol, timeframe, dataset, strategy, config, risk_pct, start_time,
		       end_time, trades, wins, losses, start_balance, end_balance, net_pl, return_pct,
		       win_rate, profit_factor, max_dd_pct, sharpe
		FROM backtest_runs
		WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &r.Symbol, &r.Timeframe, &r.Dataset, &r.Strategy, &r.Config,
		&r.RiskPct, &r.Start, &r.End, &r.Trades, &r.Wins, &r.Losses, &r.StartBalance,
		&r.EndBalance, &r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.Sharpe,
	)
	if err == sql.ErrNoRows {
		return BacktestRun{}, fmt.Errorf("backtest run %q not found", runID)
	}
	return r, err
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, tradeSelect+`
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity, drawdown
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanEquity(rows)
}

// ExportBacktestOrg loads a run and its trades and renders the Org report.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	return run.Org(trades)
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNull(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
