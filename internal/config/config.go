// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading TradingConfig `mapstructure:"trading"`
	Risk    RiskConfig    `mapstructure:"risk"`
	OKX     OKXConfig     `mapstructure:"okx"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode          string   `mapstructure:"mode"`     // "live", "paper"
	Strategy      string   `mapstructure:"strategy"` // "sma_cross", "funding_arbitrage"
	Instruments   []string `mapstructure:"instruments"`
	DryRun        bool     `mapstructure:"dry_run"`
	DurationTicks int      `mapstructure:"duration_ticks"` // 0 = unlimited
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	MaxNotionalPerOrder float64 `mapstructure:"max_notional_per_order"`
	MaxPositionValue    float64 `mapstructure:"max_position_value"` // 0 = unlimited
	StartingCash        float64 `mapstructure:"starting_cash"`      // paper mode
	FeeBps              float64 `mapstructure:"fee_bps"`
}

// OKXConfig holds exchange credentials and endpoints.
type OKXConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Passphrase   string        `mapstructure:"passphrase"`
	BaseURL      string        `mapstructure:"base_url"`
	WSURL        string        `mapstructure:"ws_url"`
	Simulated    bool          `mapstructure:"simulated"`
	FillTimeout  time.Duration `mapstructure:"fill_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// JournalConfig holds trade journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/okx-trader"
	}
	return filepath.Join(home, ".config", "okx-trader")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. A template config file is
// written when none exists.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := writeTemplate(configDir); err != nil {
			return nil, fmt.Errorf("writing template config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.strategy", "sma_cross")
	v.SetDefault("trading.instruments", []string{"BTC-USDT"})
	v.SetDefault("risk.max_notional_per_order", 1000.0)
	v.SetDefault("risk.starting_cash", 10000.0)
	v.SetDefault("risk.fee_bps", 10.0)
	v.SetDefault("okx.base_url", "https://www.okx.com")
	v.SetDefault("okx.ws_url", "wss://ws.okx.com:8443/ws/v5/public")
	v.SetDefault("okx.fill_timeout", 10*time.Second)
	v.SetDefault("okx.poll_interval", 500*time.Millisecond)
	v.SetDefault("journal.path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OKX_API_KEY"); v != "" {
		cfg.OKX.APIKey = v
	}
	if v := os.Getenv("OKX_API_SECRET"); v != "" {
		cfg.OKX.APISecret = v
	}
	if v := os.Getenv("OKX_PASSPHRASE"); v != "" {
		cfg.OKX.Passphrase = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Risk.MaxNotionalPerOrder <= 0 {
		return fmt.Errorf("max_notional_per_order must be positive")
	}
	if c.Risk.MaxPositionValue < 0 {
		return fmt.Errorf("max_position_value must be non-negative")
	}
	if c.Risk.FeeBps < 0 {
		return fmt.Errorf("fee_bps must be non-negative")
	}
	if c.Trading.Mode == "live" && (c.OKX.APIKey == "" || c.OKX.APISecret == "" || c.OKX.Passphrase == "") {
		return fmt.Errorf("live mode requires okx api_key, api_secret and passphrase")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode != "live"
}

func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	template := `# okx-trader configuration

[trading]
mode = "paper"            # "paper" or "live"
strategy = "sma_cross"    # "sma_cross" or "funding_arbitrage"
instruments = ["BTC-USDT"]
dry_run = false
duration_ticks = 0        # 0 = run until the feed ends

[risk]
max_notional_per_order = 1000.0
max_position_value = 0.0  # 0 = unlimited
starting_cash = 10000.0
fee_bps = 10.0

[okx]
# Credentials may also come from OKX_API_KEY / OKX_API_SECRET / OKX_PASSPHRASE.
api_key = ""
api_secret = ""
passphrase = ""
base_url = "https://www.okx.com"
ws_url = "wss://ws.okx.com:8443/ws/v5/public"
simulated = true

[journal]
enabled = false

[logging]
level = "info"
file = true
`
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(template), 0600)
}
