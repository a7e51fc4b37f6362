package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/domain/shared"
	"github.com/queryex/api/pkg/logger"
)

// Executor runs report and lookup queries. Each call takes its own connection
// from the target's pool and releases it before returning. Failures are not
// retried.
type Executor struct {
	registry       *Registry
	defaultTimeout time.Duration
	reportTimeout  time.Duration
	maxRows        int
	logger         *logger.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(registry *Registry, cfg config.QueryConfig, log *logger.Logger) *Executor {
	return &Executor{
		registry:       registry,
		defaultTimeout: cfg.DefaultTimeout,
		reportTimeout:  cfg.ReportTimeout,
		maxRows:        cfg.MaxRows,
		logger:         log.With("component", "sql_executor"),
	}
}

// Execute runs a report query with the extended report timeout.
func (e *Executor) Execute(ctx context.Context, target, query string, params []report.BoundParameter) (*Table, error) {
	return e.run(ctx, target, query, params, e.reportTimeout)
}

// Lookup runs an interactive query, such as a dropdown source, with the
// default timeout.
func (e *Executor) Lookup(ctx context.Context, target, query string) (*Table, error) {
	return e.run(ctx, target, query, nil, e.defaultTimeout)
}

func (e *Executor) run(ctx context.Context, target, query string, params []report.BoundParameter, timeout time.Duration) (*Table, error) {
	db, err := e.registry.Get(target)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, args := db.Dialect().Bind(query, params)

	start := time.Now()
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrQueryFailed, err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrQueryFailed, err)
	}
	defer rows.Close()

	table, err := Materialize(rows, e.maxRows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrQueryFailed, err)
	}

	e.logger.Debug("query executed",
		"target", target,
		"args", len(args),
		"rows", table.RowCount(),
		"truncated", table.Truncated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return table, nil
}
