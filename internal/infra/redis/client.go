package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Config holds Redis connection configuration. Password overrides the one
// embedded in URL, if any.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Client is a connected Redis handle.
type Client struct {
	rdb *redis.Client
}

// NewClient connects and pings once within ctx.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DialTimeout = dialTimeout

	c := &Client{rdb: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CheckpointRepo stores each checkpoint as a decimal string under its own
// key, with no expiry.
type CheckpointRepo struct {
	rdb *redis.Client
}

// NewCheckpointRepo returns a repository on client's connection.
func NewCheckpointRepo(client *Client) *CheckpointRepo {
	return &CheckpointRepo{rdb: client.rdb}
}

// Get reads key. redis.Nil is a miss, not an error.
func (r *CheckpointRepo) Get(ctx context.Context, key string) (uint64, bool, error) {
	raw, err := r.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("redis GET %s: %w", key, err)
	}

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis GET %s: not a block height %q: %w", key, raw, err)
	}
	return value, true, nil
}

// Set writes key.
func (r *CheckpointRepo) Set(ctx context.Context, key string, value uint64) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}
