// Package redis wraps the go-redis client with the connection policy and the
// small command surface the staff backend needs. Reconnection is handled by
// the underlying transport; callers see ErrUnavailable for infrastructure
// faults, which is distinct from a key simply being absent (redis.Nil).
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrUnavailable reports that the cache could not be reached. Callers apply
// their own failure policy (auth checks fail closed, rate limiting fails open).
var ErrUnavailable = errors.New("cache unavailable")

// Nil re-exports the key-absent sentinel so callers don't import go-redis.
var Nil = redis.Nil

// Config holds Redis connection configuration
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	DB             int
	PoolSize       int
	MinIdleConns   int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	// Retry configuration for the initial connect
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           6379,
		DB:             0,
		PoolSize:       100,
		MinIdleConns:   10,
		ConnectTimeout: 60 * time.Second,
		CommandTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryInterval:  time.Second,
	}
}

// Addr returns the Redis address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client wraps redis.Client with the operations the cache layer uses
type Client struct {
	client *redis.Client
	config *Config
	log    *zap.Logger
}

// NewClient creates a new Redis client and verifies connectivity with retry
func NewClient(ctx context.Context, cfg *Config, log *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := &redis.Options{
		Addr:         cfg.Addr(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.CommandTimeout,
		WriteTimeout: cfg.CommandTimeout,
	}

	client := redis.NewClient(opts)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(cfg.RetryInterval)
		}

		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return &Client{client: client, config: cfg, log: log}, nil
		}
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// NewClientFromRedis wraps an existing go-redis client. Used by tests to run
// the cache layer against miniredis.
func NewClientFromRedis(client *redis.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, config: DefaultConfig(), log: log}
}

// Client returns the underlying redis.Client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Ping checks if the Redis connection is alive
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return c.unavailable("PING", err)
	}
	return nil
}

// HealthCheck performs a bounded health check on Redis
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := c.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	if result != "PONG" {
		return fmt.Errorf("redis health check unexpected response: %s", result)
	}
	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Get returns the value stored at key, or redis.Nil if the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", c.unavailable("GET", err)
	}
	return val, nil
}

// SetWithTTL stores value at key with the given expiry.
func (c *Client) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return c.unavailable("SET", err)
	}
	return nil
}

// Del deletes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, c.unavailable("DEL", err)
	}
	return n, nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, c.unavailable("EXISTS", err)
	}
	return n == 1, nil
}

// TTL returns the remaining lifetime of key. A negative duration means the
// key is absent or has no expiry, mirroring the Redis TTL reply. Part of the
// cache client surface alongside Get/SetWithTTL for callers inspecting
// entry lifetimes.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, c.unavailable("TTL", err)
	}
	return d, nil
}

// ScanKeys returns every key matching the pattern. This walks the whole
// keyspace with SCAN; cost grows with the total number of keys, so it is
// reserved for administrative paths such as logout-all.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, c.unavailable("SCAN", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (c *Client) unavailable(op string, err error) error {
	c.log.Error("redis command failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
