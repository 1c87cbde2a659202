package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. It is loaded once at startup
// and passed down explicitly; nothing reads it through a global.
type Config struct {
	Exchange ExchangeConfig        `yaml:"exchange"`
	Trading  TradingConfig         `yaml:"trading"`
	Daemon   DaemonConfig          `yaml:"daemon"`
	Risk     domain.RiskParameters `yaml:"risk"`
	Signals  SignalConfig          `yaml:"signals"`
	Server   ServerConfig          `yaml:"server"`
	Storage  StorageConfig         `yaml:"storage"`
	Logging  LoggingConfig         `yaml:"logging"`
}

type ExchangeConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

type TradingConfig struct {
	Symbol       string   `yaml:"symbol"`
	Interval     string   `yaml:"interval"`
	Timeframes   []string `yaml:"timeframes"`
	HistoryLimit int      `yaml:"history_limit"`
	Balance      float64  `yaml:"balance"`
}

type DaemonConfig struct {
	PollIntervalMs   int    `yaml:"poll_interval_ms"`
	CooldownWindowMs int    `yaml:"cooldown_window_ms"`
	ReversalWindowMs int    `yaml:"reversal_window_ms"`
	MaxSameDirection int    `yaml:"max_same_direction"`
	SyncEveryTicks   int    `yaml:"sync_every_ticks"`
	ErrorBackoffMs   int    `yaml:"error_backoff_ms"`
	SnapshotDir      string `yaml:"snapshot_dir"`
}

// PollInterval returns the tick interval as a duration.
func (d DaemonConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// CooldownWindow returns the re-entry throttle as a duration.
func (d DaemonConfig) CooldownWindow() time.Duration {
	return time.Duration(d.CooldownWindowMs) * time.Millisecond
}

// ReversalWindow returns the direction-flip guard as a duration.
func (d DaemonConfig) ReversalWindow() time.Duration {
	return time.Duration(d.ReversalWindowMs) * time.Millisecond
}

// ErrorBackoff returns the post-failure pause as a duration.
func (d DaemonConfig) ErrorBackoff() time.Duration {
	return time.Duration(d.ErrorBackoffMs) * time.Millisecond
}

type SignalConfig struct {
	LongThreshold  float64 `yaml:"long_threshold"`
	ShortThreshold float64 `yaml:"short_threshold"`
	StrongMargin   float64 `yaml:"strong_margin"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads and validates the YAML config at path, filling in defaults
// for omitted sections.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbol:       "BTCUSDT",
			Interval:     "1h",
			Timeframes:   []string{"1h", "4h", "1d"},
			HistoryLimit: 100,
			Balance:      10000,
		},
		Daemon: DaemonConfig{
			PollIntervalMs:   1000,
			CooldownWindowMs: 300_000,
			ReversalWindowMs: 1_800_000,
			MaxSameDirection: 3,
			SyncEveryTicks:   30,
			ErrorBackoffMs:   5000,
			SnapshotDir:      "data",
		},
		Risk: domain.DefaultRiskParameters(),
		Signals: SignalConfig{
			LongThreshold:  0.2,
			ShortThreshold: -0.2,
			StrongMargin:   0.2,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{DBPath: "data/bot.db"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func (c *Config) validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol is required")
	}
	if c.Trading.Balance <= 0 {
		return fmt.Errorf("trading.balance must be positive")
	}
	if c.Risk.MaxRiskPct <= 0 || c.Risk.MaxRiskPct >= 1 {
		return fmt.Errorf("risk.max_risk_pct must be in (0, 1)")
	}
	if c.Signals.LongThreshold <= c.Signals.ShortThreshold {
		return fmt.Errorf("signals.long_threshold must exceed short_threshold")
	}
	return nil
}

// HasCredentials reports whether live trading credentials are configured.
// Without them the bot runs in simulation mode.
func (c *Config) HasCredentials() bool {
	return c.Exchange.APIKey != "" && c.Exchange.APISecret != ""
}
