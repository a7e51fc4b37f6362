// Package routes registers all HTTP routes for the API.
package routes

import (
	"time"

	"github.com/queryex/api/internal/config"
	infrahttp "github.com/queryex/api/internal/infra/http"
	"github.com/queryex/api/internal/infra/http/handler"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health    *handler.HealthHandler
	Report    *handler.ReportHandler
	Menu      *handler.MenuHandler
	Chart     *handler.ChartHandler
	Principal *handler.PrincipalHandler
}

// Register registers all application routes and returns a function that
// stops the limiters it started.
//
//   - misc.go: health, readiness and metrics
//   - reports.go: menu, catalog, execution and charts
//   - principal.go: current user
func Register(
	router Router,
	h Handlers,
	cfg *config.Config,
	log *logger.Logger,
	identify middleware.IdentityFunc,
	resolver middleware.PrincipalResolver,
) (stop func()) {
	registerHealthRoutes(router, h.Health)

	auth := middleware.Authenticate(identify, resolver, log)
	requestTimeout := middleware.Timeout(cfg.Server.RequestTimeout)
	executionLimit, stopLimit := middleware.ExecutionLimitWithStop(&cfg.RateLimit, log)
	execution := []Middleware{executionLimit, middleware.Timeout(reportTimeoutFor(cfg))}

	router.Group("/api/v1", func(r Router) {
		registerReportRoutes(r, h.Report, h.Menu, h.Chart, requestTimeout, execution)
		registerPrincipalRoutes(r, h.Principal, requestTimeout)
	}, auth)

	return stopLimit
}

// reportTimeoutFor leaves headroom over the query timeout so the database
// deadline fires first and the caller gets a mapped error.
func reportTimeoutFor(cfg *config.Config) time.Duration {
	if cfg.Query.ReportTimeout <= 0 {
		return 0
	}
	return cfg.Query.ReportTimeout + 5*time.Second
}
