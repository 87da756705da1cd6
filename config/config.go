// Package config defines the telemetry relay configuration: broker address,
// durable store connection parameters, cache settings, and the batching
// thresholds that govern the persistence pipeline.
//
// Configuration is loaded from a JSON file, with environment variable
// overrides for secrets, and validated before the service starts.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/abbas701/Surveillance-robot/errors"
)

// Config represents the complete relay configuration
type Config struct {
	Broker  BrokerConfig  `json:"broker"`
	Store   StoreConfig   `json:"store"`
	Cache   CacheConfig   `json:"cache"`
	Batch   BatchConfig   `json:"batch"`
	Command CommandConfig `json:"command"`
}

// BrokerConfig holds pub/sub transport settings
type BrokerConfig struct {
	URL            string `json:"url"`
	MaxReconnects  int    `json:"max_reconnects"`
	ReconnectWait  int    `json:"reconnect_wait_ms"`
	ConnectWait    int    `json:"connect_timeout_ms"`
	MessageTimeout int    `json:"message_timeout_ms"`
}

// StoreConfig holds PostgreSQL connection parameters
type StoreConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	Database       string `json:"database"`
	MaxConns       int    `json:"max_conns"`
	ConnectTimeout int    `json:"connect_timeout_ms"`
}

// CacheConfig holds recent-history cache settings
type CacheConfig struct {
	Addr       string `json:"addr"`
	MaxEntries int    `json:"max_entries"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// BatchConfig holds batching thresholds for durable sensor writes
type BatchConfig struct {
	MaxSize  int `json:"max_size"`
	MaxAgeMS int `json:"max_age_ms"`
}

// CommandConfig holds outbound command settings
type CommandConfig struct {
	TimeoutMS int `json:"timeout_ms"`
}

// DefaultConfig returns a configuration with production defaults.
// The defaults mirror the batching and cache parameters the robot
// producer was tuned against.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:            "nats://127.0.0.1:4222",
			MaxReconnects:  10,
			ReconnectWait:  2000,
			ConnectWait:    5000,
			MessageTimeout: 30000,
		},
		Store: StoreConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Database:       "robot",
			MaxConns:       8,
			ConnectTimeout: 5000,
		},
		Cache: CacheConfig{
			Addr:       "127.0.0.1:6379",
			MaxEntries: 100,
			TTLSeconds: 3600,
		},
		Batch: BatchConfig{
			MaxSize:  10,
			MaxAgeMS: 30000,
		},
		Command: CommandConfig{
			TimeoutMS: 5000,
		},
	}
}

// Load reads configuration from a JSON file, applies environment variable
// overrides, and validates the result. An empty path yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Only connection
// endpoints and credentials are overridable; tuning parameters live in
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BROKER_URL"); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Store.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Store.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Store.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Store.Database = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Broker.URL == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", "broker.url")
	}
	if _, err := url.Parse(c.Broker.URL); err != nil {
		return errors.WrapFatal(fmt.Errorf("broker.url %q: %w", c.Broker.URL, err),
			"Config", "Validate", "parse broker URL")
	}
	if c.Broker.MaxReconnects < 0 {
		return validateErr("broker.max_reconnects must be >= 0")
	}
	if c.Broker.MessageTimeout <= 0 {
		return validateErr("broker.message_timeout_ms must be > 0")
	}
	if c.Store.Host == "" || c.Store.Database == "" || c.Store.User == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", "store connection parameters")
	}
	if c.Store.Port <= 0 || c.Store.Port > 65535 {
		return validateErr("store.port out of range")
	}
	if c.Store.MaxConns <= 0 {
		return validateErr("store.max_conns must be > 0")
	}
	if c.Cache.Addr == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", "cache.addr")
	}
	if c.Cache.MaxEntries <= 0 {
		return validateErr("cache.max_entries must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return validateErr("cache.ttl_seconds must be > 0")
	}
	if c.Batch.MaxSize <= 0 {
		return validateErr("batch.max_size must be > 0")
	}
	if c.Batch.MaxAgeMS <= 0 {
		return validateErr("batch.max_age_ms must be > 0")
	}
	return nil
}

func validateErr(msg string) error {
	return errors.WrapFatal(fmt.Errorf("%s: %w", msg, errors.ErrInvalidConfig),
		"Config", "Validate", "check bounds")
}

// BatchMaxAge returns the flush timer interval as a duration
func (c *Config) BatchMaxAge() time.Duration {
	return time.Duration(c.Batch.MaxAgeMS) * time.Millisecond
}

// CacheTTL returns the recent-history expiry as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// StoreConnectTimeout returns the durable store connect timeout
func (c *Config) StoreConnectTimeout() time.Duration {
	return time.Duration(c.Store.ConnectTimeout) * time.Millisecond
}

// CommandTimeout returns the outbound command publish timeout
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Command.TimeoutMS) * time.Millisecond
}

// DSN builds the PostgreSQL connection string for the pool
func (c *StoreConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Database)
}
