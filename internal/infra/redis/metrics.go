package redis

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var opDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "queryex_redis_operation_duration_seconds",
		Help:    "Duration of Redis cache operations in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"operation", "result"},
)

// observe records an operation. Misses count as successful lookups.
func observe(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil && !errors.Is(*err, ErrCacheMiss) {
		result = "error"
	}
	opDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

// RegisterPoolMetrics exposes the client's connection pool counters as
// gauges read at scrape time.
func RegisterPoolMetrics(reg prometheus.Registerer, c *Client) error {
	gauges := []struct {
		name, help string
		read       func() float64
	}{
		{"queryex_redis_pool_total_connections", "Connections in the Redis pool", func() float64 { return float64(c.rdb.PoolStats().TotalConns) }},
		{"queryex_redis_pool_idle_connections", "Idle connections in the Redis pool", func() float64 { return float64(c.rdb.PoolStats().IdleConns) }},
		{"queryex_redis_pool_timeouts", "Waits for a Redis connection that timed out", func() float64 { return float64(c.rdb.PoolStats().Timeouts) }},
	}
	for _, g := range gauges {
		err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, g.read))
		if err != nil {
			return err
		}
	}
	return nil
}
