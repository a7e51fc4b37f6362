package main

import (
	"fmt"

	"github.com/queryex/api/internal/app"
	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/internal/infra/directory"
	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/internal/infra/sqlstore"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/logger"
)

const principalCachePrefix = "principal"

// ServiceDeps contains dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	Databases   *sqlstore.Registry
	RedisClient *redis.Client // nil when Redis is disabled
}

// Services holds all application services.
type Services struct {
	Report    *app.ReportService
	Principal *app.PrincipalService
	Directory directory.Directory
}

// NewServices creates all application services.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log

	catalogDB, err := deps.Databases.Get(cfg.Catalog.Target)
	if err != nil {
		return nil, fmt.Errorf("catalog database: %w", err)
	}
	reports := sqlstore.NewReportRepository(catalogDB, cfg.Catalog.Table, cfg.Query.DefaultTimeout)
	executor := sqlstore.NewExecutor(deps.Databases, cfg.Query, log)

	var cache app.PrincipalCache
	if deps.RedisClient != nil {
		redisCache, err := redis.NewCache[access.Principal](deps.RedisClient, principalCachePrefix, cfg.Auth.PrincipalTTL)
		if err != nil {
			return nil, fmt.Errorf("principal cache: %w", err)
		}
		cache = redisCache
	} else {
		cache = app.NewMemoryPrincipalCache(cfg.Auth.PrincipalTTL)
	}

	dir := directory.New(cfg.Directory, log)
	admins := access.AdminPolicy{Users: cfg.Admin.Users, Groups: cfg.Admin.Groups}

	return &Services{
		Report:    app.NewReportService(reports, executor, cfg.Query.Target, log),
		Principal: app.NewPrincipalService(cache, dir, admins, log),
		Directory: dir,
	}, nil
}
