// Package redisclient owns the Redis connection shared by the mail queue and
// the readiness probes.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int           // 0 keeps the go-redis default
	Timeout  time.Duration // dial/read/write; 0 means 2s
}

type Client struct {
	rdb     *redis.Client
	addr    string
	timeout time.Duration
}

// New does not dial; the first command (usually Ping) does.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	return &Client{rdb: rdb, addr: cfg.Addr, timeout: cfg.Timeout}
}

// Ping satisfies the readiness-check signature used by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

// Probe pings once, bounded by the client timeout. Startup uses it to decide
// whether to warn; an unreachable Redis is not fatal for the API.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Ping(ctx)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for the mail queue.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
