package main

import (
	"github.com/queryex/api/internal/infra/http/handler"
	"github.com/queryex/api/internal/infra/http/routes"
	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/internal/infra/sqlstore"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/validator"
)

// HandlerDeps contains dependencies for handler initialization.
type HandlerDeps struct {
	Log           *logger.Logger
	Validator     *validator.Validator
	Databases     *sqlstore.Registry
	CatalogTarget string
	RedisClient   *redis.Client
	Services      *Services
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	var healthOpts []handler.HealthHandlerOption
	for _, name := range deps.Databases.Names() {
		db, _ := deps.Databases.Get(name)
		healthOpts = append(healthOpts, handler.WithCheck("database:"+name, db, name == deps.CatalogTarget))
	}
	if deps.RedisClient != nil {
		healthOpts = append(healthOpts, handler.WithCheck("redis", deps.RedisClient, true))
	}

	return routes.Handlers{
		Health:    handler.NewHealthHandler(healthOpts...),
		Report:    handler.NewReportHandler(deps.Services.Report, deps.Validator, deps.Log),
		Menu:      handler.NewMenuHandler(deps.Services.Report, deps.Validator, deps.Log),
		Chart:     handler.NewChartHandler(deps.Services.Report, deps.Validator, deps.Log),
		Principal: handler.NewPrincipalHandler(deps.Services.Principal, deps.Log),
	}
}
