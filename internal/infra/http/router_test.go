package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/logger"
)

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func tag(name string, trail *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trail = append(*trail, name)
			next.ServeHTTP(w, r)
		})
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestChiRouter_MiddlewareOrder(t *testing.T) {
	var trail []string
	r := NewChiRouter()
	r.Use(tag("global", &trail))
	r.Group("/api/v1", func(g Router) {
		g.GET("/menu", ok, tag("route-1", &trail), tag("route-2", &trail))
	}, tag("group", &trail))

	rec := serve(r.Handler(), http.MethodGet, "/api/v1/menu")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"global", "group", "route-1", "route-2"}, trail)
}

func TestChiRouter_TrailingSlash(t *testing.T) {
	r := NewChiRouter()
	r.Group("/reports", func(g Router) {
		g.GET("/", ok)
		g.POST("/{id}/execute", ok)
	})

	assert.Equal(t, http.StatusOK, serve(r.Handler(), http.MethodGet, "/reports").Code)
	assert.Equal(t, http.StatusOK, serve(r.Handler(), http.MethodGet, "/reports/").Code)
	assert.Equal(t, http.StatusOK, serve(r.Handler(), http.MethodPost, "/reports/3/execute/").Code)
}

func TestChiRouter_JSONErrors(t *testing.T) {
	r := NewChiRouter()
	r.GET("/health", ok)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r.Handler(), tt.method, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["code"])
		})
	}
}

func TestCollectRoutes(t *testing.T) {
	r := NewChiRouter()
	r.POST("/b", ok)
	r.GET("/b", ok)
	r.GET("/a", ok)

	routes := CollectRoutes(r)
	require.Len(t, routes, 3)
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/a", Handler: routes[0].Handler}, routes[0])
	assert.Equal(t, "GET", routes[1].Method)
	assert.Equal(t, "POST", routes[2].Method)
	assert.Contains(t, routes[0].Handler, "ok")
}

func TestPrintRoutes(t *testing.T) {
	routes := []RouteInfo{
		{Method: "GET", Path: "/api/v1/menu", Handler: "handler.(*MenuHandler).Get"},
		{Method: "POST", Path: "/api/v1/reports/{id}/execute", Handler: "handler.(*ReportHandler).Execute"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintRoutes(&buf, routes, "table"))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "METHOD"))
		assert.Contains(t, lines[2], "/api/v1/reports/{id}/execute")
		assert.Equal(t, "2 routes", lines[3])
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintRoutes(&buf, routes, "json"))
		var got []RouteInfo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, routes, got)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "queryex", Env: "development"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, MaxBodySize: 1 << 20},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Log:       config.LogConfig{SkipHealthLogs: true},
	}
}

func TestNewServer_GlobalMiddleware(t *testing.T) {
	srv, err := NewServer(testConfig(), logger.NewNop())
	require.NoError(t, err)
	srv.Router().GET("/health", ok)

	rec := serve(srv.Handler(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNewServer_RecoversPanics(t *testing.T) {
	srv, err := NewServer(testConfig(), logger.NewNop())
	require.NoError(t, err)
	srv.Router().GET("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := serve(srv.Handler(), http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ShutdownRunsCleanup(t *testing.T) {
	srv, err := NewServer(testConfig(), logger.NewNop())
	require.NoError(t, err)

	called := false
	srv.OnShutdown(func() { called = true })
	require.NoError(t, srv.Shutdown(t.Context()))
	assert.True(t, called)
}
