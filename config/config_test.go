package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abbas701/Surveillance-robot/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Batch.MaxSize)
	assert.Equal(t, 30000, cfg.Batch.MaxAgeMS)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.Equal(t, 10, cfg.Broker.MaxReconnects)
	assert.Equal(t, 30000, cfg.Broker.MessageTimeout)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Batch, cfg.Batch)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	body := `{
		"broker": {"url": "nats://broker:4222", "max_reconnects": 3},
		"store": {"host": "db", "port": 5433, "user": "robot", "database": "telemetry", "max_conns": 4},
		"batch": {"max_size": 25, "max_age_ms": 1000}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.Broker.URL)
	assert.Equal(t, 3, cfg.Broker.MaxReconnects)
	assert.Equal(t, 25, cfg.Batch.MaxSize)
	assert.Equal(t, time.Second, cfg.BatchMaxAge())
	// Unspecified sections keep defaults
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/relay.json")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BROKER_URL", "nats://override:4222")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_PORT", "5444")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nats://override:4222", cfg.Broker.URL)
	assert.Equal(t, "hunter2", cfg.Store.Password)
	assert.Equal(t, 5444, cfg.Store.Port)
	assert.Equal(t, "cache:6379", cfg.Cache.Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty broker url", func(c *Config) { c.Broker.URL = "" }},
		{"negative reconnects", func(c *Config) { c.Broker.MaxReconnects = -1 }},
		{"zero message timeout", func(c *Config) { c.Broker.MessageTimeout = 0 }},
		{"missing db host", func(c *Config) { c.Store.Host = "" }},
		{"bad db port", func(c *Config) { c.Store.Port = 70000 }},
		{"zero pool", func(c *Config) { c.Store.MaxConns = 0 }},
		{"empty cache addr", func(c *Config) { c.Cache.Addr = "" }},
		{"zero cache entries", func(c *Config) { c.Cache.MaxEntries = 0 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLSeconds = 0 }},
		{"zero batch size", func(c *Config) { c.Batch.MaxSize = 0 }},
		{"zero batch age", func(c *Config) { c.Batch.MaxAgeMS = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestDSN(t *testing.T) {
	sc := StoreConfig{Host: "db", Port: 5432, User: "robot", Password: "p@ss word", Database: "telemetry"}
	assert.Equal(t, "postgres://robot:p%40ss+word@db:5432/telemetry", sc.DSN())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.BatchMaxAge())
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 5*time.Second, cfg.StoreConnectTimeout())
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout())
}
