package report

import "context"

// Repository reads report definitions from the catalog store. It maps rows
// only; access filtering is the caller's job.
type Repository interface {
	// ListByPathPrefix returns reports whose path equals prefix or starts with
	// it, ordered by path then title. An empty prefix lists every report.
	ListByPathPrefix(ctx context.Context, prefix string) ([]*Definition, error)
	// GetByID returns ErrReportNotFound when no row matches.
	GetByID(ctx context.Context, id int) (*Definition, error)
}
