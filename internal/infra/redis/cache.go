package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when nothing is cached under a key.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache stores JSON-encoded values of type T under "<prefix>:<key>" with a
// fixed expiry.
type Cache[T any] struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a typed cache on the client.
func NewCache[T any](client *Client, prefix string, ttl time.Duration) (*Cache[T], error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client is required")
	case prefix == "":
		return nil, errors.New("key prefix is required")
	case ttl <= 0:
		return nil, errors.New("TTL must be positive")
	}
	return &Cache[T]{rdb: client.rdb, prefix: prefix, ttl: ttl}, nil
}

func (c *Cache[T]) key(k string) string {
	return c.prefix + ":" + k
}

// Get returns the value cached under key or ErrCacheMiss.
func (c *Cache[T]) Get(ctx context.Context, key string) (_ *T, err error) {
	defer observe("get", time.Now(), &err)

	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", c.key(key), err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", c.key(key), err)
	}
	return &v, nil
}

// Set stores value under key, replacing any previous value.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) (err error) {
	defer observe("set", time.Now(), &err)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", c.key(key), err)
	}
	return c.rdb.Set(ctx, c.key(key), data, c.ttl).Err()
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache[T]) Delete(ctx context.Context, key string) (err error) {
	defer observe("del", time.Now(), &err)
	return c.rdb.Del(ctx, c.key(key)).Err()
}
