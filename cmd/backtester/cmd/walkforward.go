package cmd

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
	"github.com/rustyeddy/backtester/walkforward"
)

var walkforwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Run a walk-forward analysis",
	Long: `Walkforward splits the data range into rolling train/test windows,
backtests each half with a fresh strategy and engine, and compares in-sample
with out-of-sample Sharpe ratios.

Example:
  backtester walkforward -c backtest.yaml --start 2020-01-01 --end 2024-01-01 --train 12 --test 3 --step 3`,
	Args: cobra.NoArgs,
	RunE: runWalkForward,
}

var (
	wfTrain   int
	wfTest    int
	wfStep    int
	wfWorkers int
)

func init() {
	rootCmd.AddCommand(walkforwardCmd)

	addDataFlags(walkforwardCmd)
	walkforwardCmd.Flags().IntVar(&wfTrain, "train", 0, "training window in months")
	walkforwardCmd.Flags().IntVar(&wfTest, "test", 0, "test window in months")
	walkforwardCmd.Flags().IntVar(&wfStep, "step", 0, "months between window starts")
	walkforwardCmd.Flags().IntVar(&wfWorkers, "workers", 0, "windows run in parallel")
}

func runWalkForward(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if f.Changed("train") {
		cfg.WalkForward.TrainMonths = wfTrain
	}
	if f.Changed("test") {
		cfg.WalkForward.TestMonths = wfTest
	}
	if f.Changed("step") {
		cfg.WalkForward.StepMonths = wfStep
	}
	if f.Changed("workers") {
		cfg.WalkForward.Workers = wfWorkers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	start, end, err := cfg.Data.Range()
	if err != nil {
		return err
	}
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("walkforward needs data.start and data.end")
	}

	l := log.WithFields(log.Fields{"component": "walkforward", "symbol": cfg.Data.Symbol})
	p := &walkforward.Pipeline{
		Source:    market.NewCSVSource(cfg.Data.Path, cfg.Data.BaseTimeframe),
		Symbol:    cfg.Data.Symbol,
		Timeframe: cfg.Data.Timeframe,
		NewStrategy: func() (backtest.Strategy, error) {
			return strategies.StrategyByName(cfg.Strategy.Name, cfg.Strategy.Params)
		},
		NewEngine: func(s backtest.Strategy) (*backtest.Engine, error) {
			return newEngine(cfg, s, l)
		},
		Workers: cfg.WalkForward.Workers,
		Log:     l,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := p.Run(ctx, start, end, cfg.WalkForward.TrainMonths, cfg.WalkForward.TestMonths, cfg.WalkForward.StepMonths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Walk-forward: %s %s %s, %d windows\n\n", cfg.Strategy.Name, cfg.Data.Symbol, cfg.Data.Timeframe, len(res.Windows))
	renderWalkForward(out, res)
	return nil
}
