package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// readyTimeout bounds all readiness pings together.
const readyTimeout = 5 * time.Second

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	pinger   Pinger
	required bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps []dependency
	now  func() time.Time
}

// HealthHandlerOption configures the health handler.
type HealthHandlerOption func(*HealthHandler)

// WithCheck adds a dependency to the readiness probe. A failing required
// dependency makes the instance not ready; an optional one only degrades it.
func WithCheck(name string, p Pinger, required bool) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.deps = append(h.deps, dependency{name: name, pinger: p, required: required})
	}
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(opts ...HealthHandlerOption) *HealthHandler {
	h := &HealthHandler{now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the liveness answer.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: h.now().UTC()})
}

// ReadyResponse is the readiness answer. Status is ready, degraded or
// not_ready.
type ReadyResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency's ping outcome.
type CheckResult struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// Ready handles GET /ready
// Dependencies are pinged concurrently. A report target being down leaves
// the catalog and menu usable, so only required dependencies answer 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		g      errgroup.Group
		checks = make(map[string]CheckResult, len(h.deps))
	)
	for _, d := range h.deps {
		g.Go(func() error {
			res := ping(ctx, d)
			mu.Lock()
			checks[d.name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ready", http.StatusOK
	for _, c := range checks {
		if c.Status == "ok" {
			continue
		}
		if c.Required {
			status, code = "not_ready", http.StatusServiceUnavailable
			break
		}
		status = "degraded"
	}

	writeJSON(w, code, ReadyResponse{Status: status, Timestamp: h.now().UTC(), Checks: checks})
}

func ping(ctx context.Context, d dependency) CheckResult {
	start := time.Now()
	err := d.pinger.Ping(ctx)
	res := CheckResult{Status: "ok", Required: d.required, Duration: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}
