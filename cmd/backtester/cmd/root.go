package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/config"
)

// EnvLogLevel sets the default log level when --log-level is not given.
const EnvLogLevel = "BACKTESTER_LOG_LEVEL"

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Bar-driven backtesting and walk-forward analysis",
	Long: `Backtester replays historical OHLC bars through a trading strategy and
keeps a full account ledger: fills, partial exits, trailing stops, fees and
daily/weekly loss limits.

It provides tools for:
  - Backtesting a strategy over a CSV bar dataset
  - Walk-forward analysis over rolling train/test windows
  - Journaling trades and equity to CSV or SQLite
  - Generating and validating configuration files`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

var (
	cfgFile  string
	logLevel string
	logJSON  bool
	envFile  string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); default $"+EnvLogLevel+" or info")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file to load")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	level := logLevel
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(cmd.ErrOrStderr())

	if logJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// loadConfig reads --config, or starts from the defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}
