package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/logger"
)

// bucketIdleTTL is how long an idle key keeps its bucket.
const bucketIdleTTL = 3 * time.Minute

// KeyFunc picks the bucket a request is charged to. An empty key is not
// limited.
type KeyFunc func(*http.Request) string

// ByClientIP charges requests to the client address. chi's RealIP has
// already applied X-Real-IP / X-Forwarded-For when present.
func ByClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByUsername charges requests to the authenticated user.
func ByUsername(r *http.Request) string {
	return GetUsername(r.Context())
}

// RateLimiter is a keyed token bucket limiter. Idle buckets are dropped by a
// background loop until Stop is called.
type RateLimiter struct {
	name  string
	limit rate.Limit
	burst int
	key   KeyFunc
	log   *logger.Logger

	mu      sync.Mutex
	buckets map[string]*bucket

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter named for logs and starts its cleanup
// loop.
func NewRateLimiter(name string, limit rate.Limit, burst int, cleanup time.Duration, key KeyFunc, log *logger.Logger) *RateLimiter {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	rl := &RateLimiter{
		name:    name,
		limit:   limit,
		burst:   burst,
		key:     key,
		log:     log,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go rl.sweep(cleanup)
	return rl
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
	<-rl.stopped
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer close(rl.stopped)

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for k, b := range rl.buckets {
				if now.Sub(b.lastSeen) > bucketIdleTTL {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.key(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			limiter := rl.limiterFor(key, now)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

			res := limiter.ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)
				retry := int(delay/time.Second) + 1
				rl.log.Warn("rate limit exceeded",
					"limiter", rl.name,
					"key", key,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				apierror.RateLimitExceeded().WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, int(limiter.TokensAt(now)))))
			next.ServeHTTP(w, r)
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

// RateLimitWithStop builds the global per-client limiter and returns its
// stop function for graceful shutdown.
func RateLimitWithStop(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled {
		return passthrough, func() {}
	}
	rl := NewRateLimiter("client", rate.Limit(cfg.RequestsPerSec), cfg.Burst, cfg.CleanupInterval, ByClientIP, log)
	return rl.Middleware(), rl.Stop
}

// ExecutionLimitWithStop builds the per-user limiter for report executions.
// It must run after Authenticate.
func ExecutionLimitWithStop(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled || cfg.ExecutionsPerMin <= 0 {
		return passthrough, func() {}
	}
	burst := cfg.ExecutionBurst
	if burst <= 0 {
		burst = 1
	}
	perSec := rate.Limit(float64(cfg.ExecutionsPerMin) / 60)
	rl := NewRateLimiter("execution", perSec, burst, cfg.CleanupInterval, ByUsername, log)
	return rl.Middleware(), rl.Stop
}
