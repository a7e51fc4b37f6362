package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/internal/infra/http"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/internal/infra/http/routes"
	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/internal/infra/sqlstore"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/validator"
)

// Command line flags.
var (
	showRoutes  = flag.Bool("routes", false, "Print all registered routes and exit")
	routeFormat = flag.String("route-format", "table", "Route output format: table, json")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().Error("failed to load configuration", "error", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.NewDefault().Error("invalid configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env, "auth_mode", cfg.Auth.Mode)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	databases, err := sqlstore.Open(cfg.Databases)
	if err != nil {
		log.Error("failed to open databases", "error", err)
		return 1
	}
	defer closeWithLog(databases, "databases", log)
	log.Info("databases opened", "targets", databases.Names())

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := databases.Ping(pingCtx); err != nil {
		log.Warn("database targets unreachable at startup", "error", err)
	}
	cancelPing()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, &cfg.Redis, log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer closeWithLog(redisClient, "redis", log)

		if err := redis.RegisterPoolMetrics(prometheus.DefaultRegisterer, redisClient); err != nil {
			log.Warn("redis pool metrics not registered", "error", err)
		}
	}

	// ==========================================================================
	// Services
	// ==========================================================================
	services, err := NewServices(&ServiceDeps{
		Config:      cfg,
		Log:         log,
		Databases:   databases,
		RedisClient: redisClient,
	})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized", "directory", services.Directory.Name())

	// ==========================================================================
	// Handlers
	// ==========================================================================
	handlers := NewHandlers(&HandlerDeps{
		Log:           log,
		Validator:     validator.New(),
		Databases:     databases,
		CatalogTarget: cfg.Catalog.Target,
		RedisClient:   redisClient,
		Services:      services,
	})

	identify, err := middleware.NewIdentityFunc(cfg.Auth)
	if err != nil {
		log.Error("failed to initialize authentication", "error", err)
		return 1
	}

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	server, err := http.NewServer(cfg, log)
	if err != nil {
		log.Error("failed to create server", "error", err)
		return 1
	}
	server.OnShutdown(routes.Register(server.Router(), handlers, cfg, log, identify, services.Principal))

	if *showRoutes {
		if err := http.PrintRoutes(os.Stdout, http.CollectRoutes(server.Router()), *routeFormat); err != nil {
			log.Error("failed to print routes", "error", err)
			return 1
		}
		return 0
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			return 1
		}
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
