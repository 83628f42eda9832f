package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account     AccountConfig     `json:"account" yaml:"account"`
	Broker      BrokerConfig      `json:"broker" yaml:"broker"`
	Risk        RiskConfig        `json:"risk" yaml:"risk"`
	Strategy    StrategyConfig    `json:"strategy" yaml:"strategy"`
	Data        DataConfig        `json:"data" yaml:"data"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
	WalkForward WalkForwardConfig `json:"walkforward" yaml:"walkforward"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	Currency       string  `json:"currency" yaml:"currency"`
}

// BrokerConfig is the simulated venue's cost model.
type BrokerConfig struct {
	SlippageBps float64 `json:"slippage_bps" yaml:"slippage_bps"`
	SpreadBps   float64 `json:"spread_bps" yaml:"spread_bps"`
	FeePerTrade float64 `json:"fee_per_trade" yaml:"fee_per_trade"`
}

// RiskConfig holds sizing, loss limits and exit management. The loss limits
// are absolute amounts in account currency; nil means no limit.
type RiskConfig struct {
	RiskPerTrade     float64  `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxDailyRisk     *float64 `json:"max_daily_risk,omitempty" yaml:"max_daily_risk,omitempty"`
	MaxWeeklyRisk    *float64 `json:"max_weekly_risk,omitempty" yaml:"max_weekly_risk,omitempty"`
	PartialExit      bool     `json:"partial_exit" yaml:"partial_exit"`
	TrailPercentage  float64  `json:"trail_percentage" yaml:"trail_percentage"`
	StopSlippagePips float64  `json:"stop_slippage_pips" yaml:"stop_slippage_pips"`
}

type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name"`
	Params strategies.Params `json:"params" yaml:"params"`
}

// DataConfig locates the bar files. Start and End are ISO dates or
// timestamps; empty means unbounded.
type DataConfig struct {
	Path          string           `json:"path" yaml:"path"`
	Symbol        string           `json:"symbol" yaml:"symbol"`
	BaseTimeframe market.Timeframe `json:"base_timeframe" yaml:"base_timeframe"`
	Timeframe     market.Timeframe `json:"timeframe" yaml:"timeframe"`
	Start         string           `json:"start,omitempty" yaml:"start,omitempty"`
	End           string           `json:"end,omitempty" yaml:"end,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type WalkForwardConfig struct {
	TrainMonths int `json:"train_months" yaml:"train_months"`
	TestMonths  int `json:"test_months" yaml:"test_months"`
	StepMonths  int `json:"step_months" yaml:"step_months"`
	Workers     int `json:"workers" yaml:"workers"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// over the defaults, so omitted keys keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}

	if c.Broker.SlippageBps < 0 {
		return fmt.Errorf("broker.slippage_bps must not be negative")
	}
	if c.Broker.SpreadBps < 0 {
		return fmt.Errorf("broker.spread_bps must not be negative")
	}
	if c.Broker.FeePerTrade < 0 {
		return fmt.Errorf("broker.fee_per_trade must not be negative")
	}

	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be between 0 and 1")
	}
	if c.Risk.MaxDailyRisk != nil && *c.Risk.MaxDailyRisk < 0 {
		return fmt.Errorf("risk.max_daily_risk must not be negative")
	}
	if c.Risk.MaxWeeklyRisk != nil && *c.Risk.MaxWeeklyRisk < 0 {
		return fmt.Errorf("risk.max_weekly_risk must not be negative")
	}
	if c.Risk.TrailPercentage < 0 || c.Risk.TrailPercentage > 1 {
		return fmt.Errorf("risk.trail_percentage must be between 0 and 1")
	}
	if c.Risk.StopSlippagePips < 0 {
		return fmt.Errorf("risk.stop_slippage_pips must not be negative")
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := strategies.StrategyByName(c.Strategy.Name, c.Strategy.Params); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if c.Data.Symbol == "" {
		return fmt.Errorf("data.symbol is required")
	}
	if _, err := c.Data.BaseTimeframe.Duration(); err != nil {
		return fmt.Errorf("data.base_timeframe: %w", err)
	}
	if _, err := c.Data.Timeframe.Duration(); err != nil {
		return fmt.Errorf("data.timeframe: %w", err)
	}
	start, end, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("data.start must be before data.end")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal.trades_file and journal.equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.WalkForward.TrainMonths <= 0 {
		return fmt.Errorf("walkforward.train_months must be positive")
	}
	if c.WalkForward.TestMonths <= 0 {
		return fmt.Errorf("walkforward.test_months must be positive")
	}
	if c.WalkForward.StepMonths <= 0 {
		return fmt.Errorf("walkforward.step_months must be positive")
	}
	if c.WalkForward.Workers < 0 {
		return fmt.Errorf("walkforward.workers must not be negative")
	}
	return nil
}

// Range parses Start and End. A zero time means unbounded.
func (d DataConfig) Range() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = market.ParseUTC(d.Start); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = market.ParseUTC(d.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	return start, end, nil
}

// Engine returns the engine configuration.
func (c *Config) Engine() backtest.Config {
	return backtest.Config{
		InitialCapital:   c.Account.InitialCapital,
		RiskPerTrade:     c.Risk.RiskPerTrade,
		PartialExit:      c.Risk.PartialExit,
		StopSlippagePips: c.Risk.StopSlippagePips,
		Policy: risk.Policy{
			MaxDailyRisk:  c.Risk.MaxDailyRisk,
			MaxWeeklyRisk: c.Risk.MaxWeeklyRisk,
		},
	}
}

func (c *Config) Costs() broker.Costs {
	return broker.Costs{
		SlippageBps: c.Broker.SlippageBps,
		SpreadBps:   c.Broker.SpreadBps,
		FeePerTrade: c.Broker.FeePerTrade,
	}
}

func (c *Config) RiskManager() risk.Standard {
	return risk.Standard{TrailPercentage: c.Risk.TrailPercentage}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: 10000,
			Currency:       "USD",
		},
		Risk: RiskConfig{
			RiskPerTrade:     0.01,
			PartialExit:      true,
			TrailPercentage:  risk.DefaultTrailPercentage,
			StopSlippagePips: 0.5,
		},
		Strategy: StrategyConfig{
			Name:   "ma-cross",
			Params: strategies.DefaultParams(),
		},
		Data: DataConfig{
			Path:          "./data",
			Symbol:        "EURUSD",
			BaseTimeframe: "M30",
			Timeframe:     "H1",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		WalkForward: WalkForwardConfig{
			TrainMonths: 6,
			TestMonths:  3,
			StepMonths:  3,
			Workers:     4,
		},
	}
}
