package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/queryex/api/pkg/logger"
)

// LoggerConfig configures HTTP request logging.
type LoggerConfig struct {
	// SkipPaths are not logged.
	SkipPaths []string

	// SlowRequestThreshold logs slower requests as warnings. Zero disables.
	SlowRequestThreshold time.Duration
}

// DefaultLoggerConfig skips probes and scrapes and flags requests slower
// than ten seconds.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		SkipPaths:            []string{"/health", "/ready", "/metrics"},
		SlowRequestThreshold: 10 * time.Second,
	}
}

type accessEntryKey struct{}

// accessEntry is filled in by inner middleware so the access log can name
// the caller, who is only known after authentication.
type accessEntry struct {
	user string
}

func noteUser(ctx context.Context, user string) {
	if e, ok := ctx.Value(accessEntryKey{}).(*accessEntry); ok {
		e.user = user
	}
}

// recorder captures the status and body size written by the handler.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *recorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggerWithConfig writes one access log line per request. 5xx log at
// error, 4xx and slow requests at warn.
func LoggerWithConfig(log *logger.Logger, cfg LoggerConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			entry := &accessEntry{}
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), accessEntryKey{}, entry)))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", elapsed,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if entry.user != "" {
				attrs = append(attrs, "user", entry.user)
			}

			switch {
			case status >= 500:
				log.Error("http request", attrs...)
			case status >= 400:
				log.Warn("http request", attrs...)
			case cfg.SlowRequestThreshold > 0 && elapsed > cfg.SlowRequestThreshold:
				log.Warn("slow http request", attrs...)
			default:
				log.Info("http request", attrs...)
			}
		})
	}
}
