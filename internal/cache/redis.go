package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/partnerpay/backend/internal/config"
)

// Client wraps the redis connection used for non-authoritative fast paths.
// Every caller must tolerate a nil Client and fall through to the database.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a redis client from configuration
func NewClient(cfg config.RedisConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// SeenEvent records the key and reports whether it was already present. Used
// as a dedup fast path in front of the authoritative database lookup; a redis
// error is treated as "not seen" so the database stays the source of truth.
func (c *Client) SeenEvent(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	ok, err := c.rdb.SetNX(ctx, "dedup:"+key, 1, ttl).Result()
	if err != nil {
		return false
	}
	return !ok
}

// Close closes the underlying connection
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
