// Package history keeps the bounded, time-expiring recent-telemetry list
// that backs live dashboard reads.
//
// Records are stored as opaque serialized payloads in a Redis list,
// newest-first: every write pushes to the head, trims the list to the
// configured maximum, and resets the expiry. Reads degrade to empty
// results when the cache is unreachable; dashboard staleness is preferable
// to failing telemetry ingestion.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// List keys for the cached streams
const (
	// SensorKey holds the recent sensor-telemetry history
	SensorKey = "sensor:latest"
	// NetworkKey holds the recent network-metrics history
	NetworkKey = "network:latest"
)

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the cache logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithErrorHook sets a callback invoked once per degraded operation,
// used to feed the cache-error metric.
func WithErrorHook(fn func()) Option {
	return func(c *Cache) { c.onError = fn }
}

// Cache is the recent-history store
type Cache struct {
	rdb        *redis.Client
	maxEntries int
	ttl        time.Duration
	logger     *slog.Logger
	onError    func()
}

// New creates a history cache talking to the Redis server at addr
func New(addr string, maxEntries int, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		rdb:        redis.NewClient(&redis.Options{Addr: addr}),
		maxEntries: maxEntries,
		ttl:        ttl,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks cache reachability. Used at startup for a log-only health
// probe; an unreachable cache does not prevent the service from starting.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the client's connection pool
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) degrade(op, key string, err error) {
	c.logger.Warn("history cache degraded",
		"operation", op,
		"key", key,
		"error", err)
	if c.onError != nil {
		c.onError()
	}
}

// Push inserts a serialized record at the head of the named list, trims the
// list to the configured maximum, and resets its expiry. The three commands
// go out in one pipelined round trip. Failures are absorbed.
func (c *Cache) Push(ctx context.Context, key string, payload []byte) {
	pipe := c.rdb.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(c.maxEntries-1))
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.degrade("push", key, err)
	}
}

// PushLatest stores a sensor record for live reads
func (c *Cache) PushLatest(ctx context.Context, payload []byte) {
	c.Push(ctx, SensorKey, payload)
}

// PushNetwork stores a network-metrics record
func (c *Cache) PushNetwork(ctx context.Context, payload []byte) {
	c.Push(ctx, NetworkKey, payload)
}

// FetchAllKey returns every entry of the named list, oldest-first.
// Storage order is newest-first, so results are reversed before return.
func (c *Cache) FetchAllKey(ctx context.Context, key string) []json.RawMessage {
	items, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		c.degrade("fetch_all", key, err)
		return nil
	}

	out := make([]json.RawMessage, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, json.RawMessage(items[i]))
	}
	return out
}

// FetchAll returns the full sensor history, oldest-first
func (c *Cache) FetchAll(ctx context.Context) []json.RawMessage {
	return c.FetchAllKey(ctx, SensorKey)
}

// FetchNetwork returns the full network-metrics history, oldest-first
func (c *Cache) FetchNetwork(ctx context.Context) []json.RawMessage {
	return c.FetchAllKey(ctx, NetworkKey)
}

// FetchLatest returns the most recent sensor record, or nil when the list
// is empty, expired, or unreachable.
func (c *Cache) FetchLatest(ctx context.Context) json.RawMessage {
	items, err := c.rdb.LRange(ctx, SensorKey, 0, 0).Result()
	if err != nil {
		c.degrade("fetch_latest", SensorKey, err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return json.RawMessage(items[0])
}
