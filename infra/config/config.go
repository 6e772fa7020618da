// Package config loads the server configuration: a yaml file, environment
// overrides for deployment-specific values, then validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hermes/domain/market"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	WAL struct {
		Dir         string `yaml:"dir"`
		SegmentSize int64  `yaml:"segment_size"`
	} `yaml:"wal"`

	Outbox struct {
		Dir string `yaml:"dir"`
	} `yaml:"outbox"`

	Snapshot struct {
		Dir      string   `yaml:"dir"`
		Interval Duration `yaml:"interval"`
	} `yaml:"snapshot"`

	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		TradeTopic    string   `yaml:"trade_topic"`
		EventTopic    string   `yaml:"event_topic"`
		DrainInterval Duration `yaml:"drain_interval"`
	} `yaml:"kafka"`

	Markets []Market `yaml:"markets"`
}

// Duration parses yaml values like "250ms" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Market is one trading pair to open at startup.
type Market struct {
	Coin               int32   `yaml:"coin"`
	Base               int32   `yaml:"base"`
	FeePercent         float64 `yaml:"fee_percent"`
	MaxOpenLimitOrders int32   `yaml:"max_open_limit_orders"`
	MaxOpenStopOrders  int32   `yaml:"max_open_stop_orders"`
}

// Load reads, overrides and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns a runnable local configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 100
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.WAL.Dir = "./data/wal"
	cfg.WAL.SegmentSize = 8 * 1024 * 1024
	cfg.Outbox.Dir = "./data/outbox"
	cfg.Snapshot.Dir = "./data/snapshot"
	cfg.Snapshot.Interval = Duration(time.Minute)
	cfg.Kafka.DrainInterval = Duration(250 * time.Millisecond)
	cfg.Kafka.TradeTopic = "trades"
	cfg.Kafka.EventTopic = "events"
	return cfg
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.WAL.Dir == "" || c.Outbox.Dir == "" || c.Snapshot.Dir == "" {
		return fmt.Errorf("wal.dir, outbox.dir and snapshot.dir are required")
	}
	if c.Snapshot.Interval <= 0 {
		return fmt.Errorf("snapshot.interval must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	for _, m := range c.Markets {
		if m.Coin == m.Base {
			return fmt.Errorf("market %d-%d: coin and base must differ", m.Coin, m.Base)
		}
		if m.FeePercent <= 0 || m.FeePercent >= 100 {
			return fmt.Errorf("market %d-%d: fee_percent out of range", m.Coin, m.Base)
		}
		if m.MaxOpenLimitOrders <= 0 || m.MaxOpenStopOrders <= 0 {
			return fmt.Errorf("market %d-%d: open order caps must be positive", m.Coin, m.Base)
		}
	}
	return nil
}

// MarketConfig converts the yaml form to the engine's config.
func (m Market) MarketConfig() (market.CoinPair, market.Config) {
	return market.CoinPair{Coin: m.Coin, Base: m.Base}, market.Config{
		FeeDivisor:         market.ToFeeDivisor(m.FeePercent),
		MaxOpenLimitOrders: m.MaxOpenLimitOrders,
		MaxOpenStopOrders:  m.MaxOpenStopOrders,
	}
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("HERMES_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HERMES_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HERMES_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HERMES_DATA_DIR"); v != "" {
		cfg.WAL.Dir = v + "/wal"
		cfg.Outbox.Dir = v + "/outbox"
		cfg.Snapshot.Dir = v + "/snapshot"
	}
}
