// Package redis holds the optional Redis connection and the typed cache used
// to share resolved principals between API instances.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/logger"
)

// Client is a connected Redis client.
type Client struct {
	rdb    *goredis.Client
	addr   string
	logger *logger.Logger
}

// New connects to Redis, retrying the initial ping with exponential backoff
// up to cfg.MaxRetries times.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	log = log.With("component", "redis")

	opts := &goredis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryDelay,
		MaxRetryBackoff: cfg.MaxRetryDelay,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // operator opt-in
			MinVersion:         tls.VersionTLS12,
		}
	}

	c := &Client{rdb: goredis.NewClient(opts), addr: cfg.Addr(), logger: log}

	var err error
	for attempt := 0; ; attempt++ {
		if err = c.pingWithTimeout(ctx, cfg.DialTimeout); err == nil {
			log.Info("redis connected", "addr", c.addr, "db", cfg.DB, "tls", cfg.TLSEnabled)
			return c, nil
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := retryDelay(attempt, cfg.MinRetryDelay, cfg.MaxRetryDelay)
		log.Warn("redis ping failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			_ = c.rdb.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	_ = c.rdb.Close()
	return nil, fmt.Errorf("connect redis at %s: %w", c.addr, err)
}

// retryDelay doubles base per attempt, capped at limit.
func retryDelay(attempt int, base, limit time.Duration) time.Duration {
	d := base << attempt
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

func (c *Client) pingWithTimeout(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.rdb.Ping(ctx).Err()
}

// Ping reports whether Redis answers. Used by the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	c.logger.Info("closing redis connection", "addr", c.addr)
	return c.rdb.Close()
}
