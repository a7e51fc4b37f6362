package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_Validation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		client  *Client
		prefix  string
		ttl     time.Duration
		wantErr string
	}{
		{"nil client", nil, "principal", time.Minute, "redis client is required"},
		{"empty prefix", client, "", time.Minute, "key prefix is required"},
		{"zero ttl", client, "principal", 0, "TTL must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCache[string](tt.client, tt.prefix, tt.ttl)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCache_Key(t *testing.T) {
	c, err := NewCache[string](&Client{}, "principal", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "principal:jdoe", c.key("jdoe"))
}

func TestRetryDelay(t *testing.T) {
	base, limit := 100*time.Millisecond, time.Second
	assert.Equal(t, 100*time.Millisecond, retryDelay(0, base, limit))
	assert.Equal(t, 400*time.Millisecond, retryDelay(2, base, limit))
	assert.Equal(t, time.Second, retryDelay(5, base, limit))
	assert.Equal(t, time.Second, retryDelay(70, base, limit))
}

func TestObserve_MissIsNotError(t *testing.T) {
	miss := ErrCacheMiss
	assert.NotPanics(t, func() { observe("get", time.Now(), &miss) })
	other := errors.New("boom")
	assert.NotPanics(t, func() { observe("get", time.Now(), &other) })
}

func TestRegisterPoolMetrics(t *testing.T) {
	c := &Client{rdb: goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})}
	t.Cleanup(func() { _ = c.rdb.Close() })

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, c))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)

	assert.Error(t, RegisterPoolMetrics(reg, c), "duplicate registration")
}
