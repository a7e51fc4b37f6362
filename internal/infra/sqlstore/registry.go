package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/domain/shared"
)

// Registry holds the open database targets by name.
type Registry struct {
	targets map[string]*DB
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]*DB)}
}

// Open opens every configured target. Targets opened before a failure are
// closed again.
func Open(cfgs []config.DatabaseConfig) (*Registry, error) {
	r := NewRegistry()
	for _, cfg := range cfgs {
		db, err := New(cfg)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.Add(db)
	}
	return r, nil
}

// Add registers db under its name, replacing any previous target.
func (r *Registry) Add(db *DB) {
	r.targets[db.name] = db
}

// Get returns the named target, or an error wrapping shared.ErrNotConfigured.
func (r *Registry) Get(name string) (*DB, error) {
	db, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: database %q", shared.ErrNotConfigured, name)
	}
	return db, nil
}

// Names returns the registered target names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ping pings every target.
func (r *Registry) Ping(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.targets[name].Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every target.
func (r *Registry) Close() error {
	var errs []error
	for _, db := range r.targets {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
