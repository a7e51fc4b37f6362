// Package logger wraps log/slog with level parsing, context attributes and
// masking of credentials.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// New creates a new Logger. Debug level adds source locations.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: sanitizeAttr,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

// NewDefault logs JSON at info level to stdout.
func NewDefault() *Logger {
	return New(Config{Level: "info", Format: "json"})
}

// NewNop discards everything.
func NewNop() *Logger {
	return New(Config{Level: "error", Output: io.Discard})
}

const redacted = "[REDACTED]"

// sensitiveKeys mask an attribute when its key contains any of them.
var sensitiveKeys = []string{
	"password", "passwd", "pwd", "secret", "token", "authorization", "bearer",
	"api_key", "apikey", "jwt", "cookie", "session", "credential",
	"dsn", "connection_string", "connectionstring", "database_url",
}

// secretPairs matches credentials embedded in values: "password=..." pairs
// in SQL Server and Postgres connection strings, and user:pass@ in URLs.
var secretPairs = regexp.MustCompile(`(?i)((?:password|pwd)\s*=\s*)('[^']*'|[^;&\s]+)|(://[^/:@\s]+:)([^@\s]+)(@)`)

func maskSecrets(s string) string {
	return secretPairs.ReplaceAllString(s, "${1}${3}"+redacted+"${5}")
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

func sanitizeAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKey(a.Key) {
		return slog.String(a.Key, redacted)
	}

	var text string
	switch a.Value.Kind() {
	case slog.KindString:
		text = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			return a
		}
		text = err.Error()
	default:
		return a
	}

	if masked := maskSecrets(text); masked != text {
		return slog.String(a.Key, masked)
	}
	return a
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ContextKey types the request-scoped values the logger reads.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyUsername  ContextKey = "username"
)

// WithContext adds the request ID and user stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	out := l.Logger
	if id, _ := ctx.Value(ContextKeyRequestID).(string); id != "" {
		out = out.With(slog.String("request_id", id))
	}
	if user, _ := ctx.Value(ContextKeyUsername).(string); user != "" {
		out = out.With(slog.String("user", user))
	}
	return &Logger{Logger: out}
}

// SetDefault makes this logger the slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
