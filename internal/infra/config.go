// Package infra holds application configuration and the shared plumbing
// (logging, backoff, fault isolation) the boundary clients build on.
package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries all application settings. Secrets may be overridden from
// the environment after the file is parsed.
type Config struct {
	App struct {
		Name        string `yaml:"name"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"app"`

	Trading struct {
		Mode                string  `yaml:"mode"` // PAPER or REAL
		CapitalPerLeg       float64 `yaml:"capital_per_leg"`
		MaxConcurrentTrades int     `yaml:"max_concurrent_trades"`
		UpdateIntervalSec   int     `yaml:"update_interval_sec"`
		PaperStartingCash   float64 `yaml:"paper_starting_cash"`
		PairsFile           string  `yaml:"pairs_file"`
		StateFile           string  `yaml:"state_file"`
		JournalFile         string  `yaml:"journal_file"`
	} `yaml:"trading"`

	API struct {
		Binance struct {
			RestURL    string `yaml:"rest_url"`
			WSURL      string `yaml:"ws_url"`
			APIKey     string `yaml:"api_key"`
			SecretKey  string `yaml:"secret_key"`
			QuoteAsset string `yaml:"quote_asset"`
			TimeoutSec int    `yaml:"timeout_sec"`
			UseStream  bool   `yaml:"use_stream"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Telegram struct {
		Token           string `yaml:"token"`
		ChatID          string `yaml:"chat_id"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"telegram"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, fills defaults, and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Mode == "" {
		c.Trading.Mode = "PAPER"
	}
	if c.Trading.CapitalPerLeg == 0 {
		c.Trading.CapitalPerLeg = 10
	}
	if c.Trading.MaxConcurrentTrades == 0 {
		c.Trading.MaxConcurrentTrades = 2
	}
	if c.Trading.UpdateIntervalSec == 0 {
		c.Trading.UpdateIntervalSec = 60
	}
	if c.Trading.PaperStartingCash == 0 {
		c.Trading.PaperStartingCash = 10_000
	}
	if c.Trading.PairsFile == "" {
		c.Trading.PairsFile = "live_pairs.csv"
	}
	if c.Trading.StateFile == "" {
		c.Trading.StateFile = "open_positions.json"
	}
	if c.Trading.JournalFile == "" {
		c.Trading.JournalFile = "trade_log.db"
	}
	if c.API.Binance.RestURL == "" {
		c.API.Binance.RestURL = "https://api.binance.com"
	}
	if c.API.Binance.WSURL == "" {
		c.API.Binance.WSURL = "wss://stream.binance.com:9443"
	}
	if c.API.Binance.QuoteAsset == "" {
		c.API.Binance.QuoteAsset = "USDT"
	}
	if c.API.Binance.TimeoutSec == 0 {
		c.API.Binance.TimeoutSec = 10
	}
	if c.Telegram.PollIntervalSec == 0 {
		c.Telegram.PollIntervalSec = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Trading.CapitalPerLeg <= 0 {
		return fmt.Errorf("capital_per_leg must be positive")
	}
	if c.Trading.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("max_concurrent_trades must be positive")
	}
	if c.Trading.UpdateIntervalSec <= 0 {
		return fmt.Errorf("update_interval_sec must be positive")
	}
	if c.Trading.Mode != "PAPER" && c.Trading.Mode != "REAL" {
		return fmt.Errorf("trading mode must be PAPER or REAL, got %q", c.Trading.Mode)
	}
	if c.Trading.Mode == "REAL" && (c.API.Binance.APIKey == "" || c.API.Binance.SecretKey == "") {
		return fmt.Errorf("REAL mode requires API credentials")
	}
	return nil
}

// UpdateInterval returns the controller refresh interval.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Trading.UpdateIntervalSec) * time.Second
}

// overrideWithEnv lets the environment take precedence over the config file
// for secrets, so keys never have to live on disk.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("BINANCE_API_KEY"); key != "" {
		cfg.API.Binance.APIKey = key
	}
	if secret := os.Getenv("BINANCE_API_SECRET"); secret != "" {
		cfg.API.Binance.SecretKey = secret
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
}
