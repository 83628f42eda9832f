package cmd

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/broker/sim"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest over a CSV bar dataset",
	Long: `Backtest replays OHLC bars from <data>/<symbol>_<base>_formatted.csv
through a strategy.

Bars are resampled from the base timeframe to the run timeframe. Every trade
and equity point can be journaled to CSV or SQLite, and an Org-mode report
can be written at the end.

Supported strategies:
  - noop:     never trades (baseline)
  - buy-hold: one long at the first close
  - ma-cross: fast/slow SMA crossover with volatility scaling
  - random:   seeded coin flip, at most one trade a day

Example:
  backtester backtest -c backtest.yaml --strategy ma-cross --start 2023-01-01 --journal sqlite --db runs.sqlite`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btDataPath   string
	btSymbol     string
	btTimeframe  string
	btStrategy   string
	btStart      string
	btEnd        string
	btCapital    float64
	btJournal    string
	btDBPath     string
	btTradesFile string
	btEquityFile string
	btOrgPath    string
	btProgress   int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	addDataFlags(backtestCmd)
	backtestCmd.Flags().StringVar(&btJournal, "journal", "", "journal type: none, csv or sqlite")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal path")
	backtestCmd.Flags().StringVar(&btTradesFile, "trades-file", "", "CSV journal trades path")
	backtestCmd.Flags().StringVar(&btEquityFile, "equity-file", "", "CSV journal equity path")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report to this path")
	backtestCmd.Flags().IntVar(&btProgress, "progress", 0, "log progress every N bars (0 disables)")
}

// addDataFlags registers the flags shared by backtest and walkforward.
func addDataFlags(c *cobra.Command) {
	c.Flags().StringVar(&btDataPath, "data", "", "directory holding <symbol>_<base>_formatted.csv bar files")
	c.Flags().StringVarP(&btSymbol, "symbol", "s", "", "instrument symbol")
	c.Flags().StringVar(&btTimeframe, "timeframe", "", "run timeframe (M1, M5, M15, M30, H1, H4, D)")
	c.Flags().StringVar(&btStrategy, "strategy", "", "strategy name ("+joinNames()+")")
	c.Flags().StringVar(&btStart, "start", "", "first bar date (inclusive)")
	c.Flags().StringVar(&btEnd, "end", "", "last bar date (inclusive)")
	c.Flags().Float64VarP(&btCapital, "capital", "b", 0, "initial capital")
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("data") {
		cfg.Data.Path = btDataPath
	}
	if f.Changed("symbol") {
		cfg.Data.Symbol = btSymbol
	}
	if f.Changed("timeframe") {
		cfg.Data.Timeframe = market.Timeframe(btTimeframe)
	}
	if f.Changed("strategy") {
		cfg.Strategy.Name = btStrategy
	}
	if f.Changed("start") {
		cfg.Data.Start = btStart
	}
	if f.Changed("end") {
		cfg.Data.End = btEnd
	}
	if f.Changed("capital") {
		cfg.Account.InitialCapital = btCapital
	}
	if f.Changed("journal") {
		cfg.Journal.Type = btJournal
	}
	if f.Changed("db") {
		cfg.Journal.DBPath = btDBPath
	}
	if f.Changed("trades-file") {
		cfg.Journal.TradesFile = btTradesFile
	}
	if f.Changed("equity-file") {
		cfg.Journal.EquityFile = btEquityFile
	}
}

// effectiveConfig loads --config, applies flag overrides and validates.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadBars(cfg *config.Config) ([]market.Bar, error) {
	start, end, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	src := market.NewCSVSource(cfg.Data.Path, cfg.Data.BaseTimeframe)
	bars, err := src.LoadOHLCV(cfg.Data.Symbol, cfg.Data.Timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Data.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("load %s: %w", cfg.Data.Symbol, market.ErrNoBars)
	}
	return bars, nil
}

func newEngine(cfg *config.Config, strat backtest.Strategy, l log.FieldLogger) (*backtest.Engine, error) {
	return backtest.NewEngine(cfg.Engine(), sim.NewVenue(cfg.Costs()), strat,
		backtest.WithRiskManager(cfg.RiskManager()),
		backtest.WithLogger(l.WithField("component", "engine")),
	)
}

// openJournal returns the configured journal. db is set only for SQLite.
func openJournal(c config.JournalConfig) (j journal.Journal, db *journal.SQLite, err error) {
	switch c.Type {
	case "csv":
		j, err = journal.NewCSV(c.TradesFile, c.EquityFile)
		return j, nil, err
	case "sqlite":
		db, err = journal.NewSQLite(c.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return journal.Discard{}, nil, nil
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return err
	}

	runID := id.New()
	l := log.WithFields(log.Fields{"run": runID, "symbol": cfg.Data.Symbol})

	bars, err := loadBars(cfg)
	if err != nil {
		return err
	}

	strat, err := strategies.StrategyByName(cfg.Strategy.Name, cfg.Strategy.Params)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	e, err := newEngine(cfg, strat, l)
	if err != nil {
		return err
	}

	j, db, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	l.WithFields(log.Fields{"strategy": strat.Name(), "bars": len(bars)}).Info("backtest starting")
	runner := backtest.Runner{
		Engine:   e,
		Recorder: journal.NewRecorder(j, runID),
		Options:  backtest.RunnerOptions{ProgressEvery: btProgress},
		Log:      l,
	}
	res, err := runner.Run(ctx, bars, cfg.Data.Symbol)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", runID, err)
	}

	rep := analytics.Compute(e)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backtest %s: %s %s %s\n\n", runID, strat.Name(), cfg.Data.Symbol, cfg.Data.Timeframe)
	renderReport(out, res, rep)

	run := backtestRun(runID, cfg, strat.Name(), res, rep)
	if db != nil {
		if err := db.RecordBacktest(ctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Fprintf(out, "\nJournaled to %s\n", cfg.Journal.DBPath)
	}
	if btOrgPath != "" {
		run.OrgPath = btOrgPath
		trades := make([]journal.TradeRecord, 0, len(e.Trades()))
		for _, t := range e.Trades() {
			trades = append(trades, journal.FromTrade(runID, t))
		}
		if err := run.WriteBacktestOrg(trades); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", btOrgPath)
	}
	return nil
}

func backtestRun(runID string, cfg *config.Config, strategy string, res backtest.Result, rep analytics.Report) journal.BacktestRun {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		raw = nil
	}
	run := journal.BacktestRun{
		RunID:        runID,
		Symbol:       cfg.Data.Symbol,
		Timeframe:    string(cfg.Data.Timeframe),
		Dataset:      cfg.Data.Path,
		Strategy:     strategy,
		Config:       raw,
		RiskPct:      cfg.Risk.RiskPerTrade,
		Start:        res.Start,
		End:          res.End,
		Trades:       rep.Trades,
		Wins:         rep.Wins,
		Losses:       rep.Losses,
		StartBalance: res.InitialCapital,
		EndBalance:   res.Equity,
		WinRate:      rep.WinRate,
		ProfitFactor: rep.ProfitFactor,
		MaxDDPct:     rep.MaxDrawdown * 100,
		Sharpe:       rep.Sharpe,
	}
	run.Finalize()
	return run
}
