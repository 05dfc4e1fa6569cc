// Package config defines all configuration for the market-making bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via MM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Symbol    string          `mapstructure:"symbol"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// FeedConfig points at the upstream market data source and, for the live
// executor, the REST endpoint orders are placed against.
type FeedConfig struct {
	WSMarketURL string `mapstructure:"ws_market_url"`
	RESTBaseURL string `mapstructure:"rest_base_url"`
	APIKey      string `mapstructure:"api_key"`
}

// PipelineConfig sizes the runtime's internal broadcast buses and the order
// book's depth limit.
type PipelineConfig struct {
	EventBusCapacity  int `mapstructure:"event_bus_capacity"`
	ActionBusCapacity int `mapstructure:"action_bus_capacity"`
	BookMaxDepth      int `mapstructure:"book_max_depth"`
}

// StrategyConfig selects and tunes one of the two market-making strategies.
//
//   - Kind: "fixed" or "dynamic".
//   - IntervalMs: how often the strategy is ticked.
//   - OrderSize: size quoted on each side.
//   - BidSpread/AskSpread: fixed-strategy distances from mid-price.
//   - BaseSpread/VolatilityTarget/SkewStrength/RSILow/RSIHigh: dynamic-strategy parameters.
type StrategyConfig struct {
	Kind             string  `mapstructure:"kind"`
	IntervalMs       uint64  `mapstructure:"interval_ms"`
	OrderSize        string  `mapstructure:"order_size"`
	BidSpread        string  `mapstructure:"bid_spread"`
	AskSpread        string  `mapstructure:"ask_spread"`
	BaseSpread       string  `mapstructure:"base_spread"`
	VolatilityTarget string  `mapstructure:"volatility_target"`
	SkewStrength     string  `mapstructure:"skew_strength"`
	RSILow           string  `mapstructure:"rsi_low"`
	RSIHigh          string  `mapstructure:"rsi_high"`
}

// IndicatorConfig tunes the RSI and NATR indicators fed by trade updates.
type IndicatorConfig struct {
	RSIPeriod        int   `mapstructure:"rsi_period"`
	RSIIntervalMs    int64 `mapstructure:"rsi_interval_ms"`
	NATRPeriod       int   `mapstructure:"natr_period"`
	NATRIntervalMs   int64 `mapstructure:"natr_interval_ms"`
}

// RiskConfig sets hard limits enforced by the standalone risk guard.
//
//   - MaxPositionSize: cancels all resting orders once |position size| exceeds this.
//   - MaxPriceMoveSize / MaxPriceMoveWindowSec: cancels all resting orders if mid-price moves
//     by more than MaxPriceMoveSize within MaxPriceMoveWindowSec seconds.
//   - CooldownSec: how long the guard stays engaged after firing.
type RiskConfig struct {
	MaxPositionSize      string `mapstructure:"max_position_size"`
	MaxPriceMoveSize     string `mapstructure:"max_price_move_size"`
	MaxPriceMoveWindowSec int    `mapstructure:"max_price_move_window_sec"`
	CooldownSec          int    `mapstructure:"cooldown_sec"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the read-only status/snapshot server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: MM_API_KEY, MM_DRY_RUN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("MM_API_KEY"); key != "" {
		cfg.Feed.APIKey = key
	}
	if os.Getenv("MM_DRY_RUN") == "true" || os.Getenv("MM_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	switch c.Strategy.Kind {
	case "fixed", "dynamic":
	default:
		return fmt.Errorf("strategy.kind must be one of: fixed, dynamic")
	}
	if c.Strategy.IntervalMs == 0 {
		return fmt.Errorf("strategy.interval_ms must be > 0")
	}
	if c.Strategy.OrderSize == "" {
		return fmt.Errorf("strategy.order_size is required")
	}
	if c.Strategy.Kind == "fixed" {
		if c.Strategy.BidSpread == "" || c.Strategy.AskSpread == "" {
			return fmt.Errorf("strategy.bid_spread and strategy.ask_spread are required for the fixed strategy")
		}
	}
	if c.Strategy.Kind == "dynamic" {
		if c.Strategy.BaseSpread == "" || c.Strategy.VolatilityTarget == "" || c.Strategy.SkewStrength == "" {
			return fmt.Errorf("strategy.base_spread, volatility_target, and skew_strength are required for the dynamic strategy")
		}
		if c.Indicator.RSIPeriod <= 0 || c.Indicator.NATRPeriod <= 0 {
			return fmt.Errorf("indicator.rsi_period and indicator.natr_period must be > 0 for the dynamic strategy")
		}
	}
	if !c.DryRun && c.Feed.RESTBaseURL == "" {
		return fmt.Errorf("feed.rest_base_url is required unless dry_run is set")
	}
	return nil
}

// requiredDuration is a small helper mirroring the teacher's style of
// validating optional-but-bounded time.Duration fields; unused today but
// kept for components that add duration-based config (e.g. collector
// reconnect backoff) without reinventing the pattern.
func requiredDuration(d time.Duration, field string) error {
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", field)
	}
	return nil
}
