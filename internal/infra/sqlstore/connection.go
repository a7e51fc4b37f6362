// Package sqlstore runs catalog reads and report queries against the
// configured relational databases.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/queryex/api/internal/config"
)

// DB wraps sql.DB with its target name and dialect.
type DB struct {
	*sql.DB
	name    string
	dialect Dialect
}

// New opens the database target described by cfg. Connections are made
// lazily; an unreachable server shows up on the first ping or query.
func New(cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.Name, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{DB: db, name: cfg.Name, dialect: dialect}, nil
}

// Name returns the target name.
func (db *DB) Name() string {
	return db.name
}

// Dialect returns the SQL dialect of the target.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping is used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
