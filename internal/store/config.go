package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode           string  `yaml:"mode"`             // DRY_RUN or LIVE
	PollSeconds    int     `yaml:"poll_seconds"`     // polling cycle period
	BudgetPerTrade float64 `yaml:"budget_per_trade"` // cash allotted to a single buy
	Rebuy          bool    `yaml:"rebuy"`            // re-queue instruments after a sell
	MaxWorkers     int     `yaml:"max_workers"`      // evaluation worker pool size
	StatePath      string  `yaml:"state_path"`       // watchlist snapshot file
	ControlAddr    string  `yaml:"control_addr"`     // operator HTTP surface bind address

	Quote struct {
		Source    string `yaml:"source"` // SCRAPE or STATIC
		TimeoutMS int    `yaml:"timeout_ms"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"quote"`

	Margin struct {
		Minimum float64 `yaml:"minimum"` // non-margin cash floor
		Buffer  float64 `yaml:"buffer"`  // near-threshold warning band above the floor
	} `yaml:"margin"`

	Session struct {
		LiquidateAt string `yaml:"liquidate_at"` // HH:MM exchange-local liquidation cutoff
	} `yaml:"session"`

	Sim struct {
		StartingCash float64 `yaml:"starting_cash"` // DRY_RUN account seed
	} `yaml:"sim"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Quote.Source != "SCRAPE" && c.Quote.Source != "STATIC" {
		return fmt.Errorf("invalid quote.source '%s': must be 'SCRAPE' or 'STATIC'", c.Quote.Source)
	}
	if c.BudgetPerTrade <= 0 {
		return fmt.Errorf("budget_per_trade must be positive, got %.2f", c.BudgetPerTrade)
	}
	if c.Margin.Minimum < 0 {
		return fmt.Errorf("margin.minimum must not be negative, got %.2f", c.Margin.Minimum)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if _, _, err := c.LiquidateHourMinute(); err != nil {
		return fmt.Errorf("session.liquidate_at: %w", err)
	}
	return nil
}

// LiquidateHourMinute parses the HH:MM end-of-day liquidation cutoff.
func (c *Config) LiquidateHourMinute() (hour, minute int, err error) {
	parts := strings.SplitN(c.Session.LiquidateAt, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time '%s': want HH:MM", c.Session.LiquidateAt)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in '%s'", c.Session.LiquidateAt)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in '%s'", c.Session.LiquidateAt)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time '%s' out of range", c.Session.LiquidateAt)
	}
	return hour, minute, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 5
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if c.BudgetPerTrade == 0 {
		c.BudgetPerTrade = 1000
	}
	if c.StatePath == "" {
		c.StatePath = "daytrader.json"
	}
	if c.ControlAddr == "" {
		c.ControlAddr = "127.0.0.1:7777"
	}
	if c.Quote.Source == "" {
		c.Quote.Source = "STATIC"
	}
	if c.Quote.TimeoutMS == 0 {
		c.Quote.TimeoutMS = 1000
	}
	if c.Margin.Minimum == 0 {
		c.Margin.Minimum = 25000
	}
	if c.Margin.Buffer == 0 {
		c.Margin.Buffer = 100
	}
	if c.Session.LiquidateAt == "" {
		c.Session.LiquidateAt = "15:58"
	}
	if c.Sim.StartingCash == 0 {
		c.Sim.StartingCash = 30000
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
