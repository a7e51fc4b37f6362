package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/queryex/api/internal/infra/sqlstore"
	"github.com/queryex/api/internal/metrics"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/domain/menu"
	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/domain/shared"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/pagination"
	"github.com/queryex/api/pkg/trailer"
)

// QueryRunner executes SQL against a named database target.
type QueryRunner interface {
	Execute(ctx context.Context, target, query string, params []report.BoundParameter) (*sqlstore.Table, error)
	Lookup(ctx context.Context, target, query string) (*sqlstore.Table, error)
}

// Option is one choice of a dropdown parameter.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReportDetail is a report with its resolved parameters and, when requested,
// the options of its dropdown parameters keyed by parameter name.
type ReportDetail struct {
	Definition *report.Definition
	Parameters []report.Descriptor
	Options    map[string][]Option
}

// ListReportsInput represents the input for listing reports.
type ListReportsInput struct {
	Prefix  string
	Page    int
	PerPage int
	Sort    string
}

// ExecuteReportInput represents the input for executing a report.
type ExecuteReportInput struct {
	ReportID int
	Args     report.Args
}

// TrailerChartInput selects the label and value columns of a report result.
type TrailerChartInput struct {
	ExecuteReportInput
	LabelColumn string
	ValueColumn string
}

// optionsConcurrency bounds parallel dropdown queries per describe call.
const optionsConcurrency = 4

var reportSortFields = map[string]string{
	"id":    "id",
	"path":  "path",
	"title": "title",
}

// ReportService handles the report catalog as seen by one principal.
// Reports the principal may not access are left out of listings and are
// reported as not found when fetched or executed directly.
type ReportService struct {
	repo   report.Repository
	runner QueryRunner
	target string
	logger *logger.Logger
}

// NewReportService creates a new ReportService. target names the database
// that report and dropdown queries run against.
func NewReportService(repo report.Repository, runner QueryRunner, target string, log *logger.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		runner: runner,
		target: target,
		logger: log.With("service", "report"),
	}
}

// accessible lists the reports under prefix that p may access.
func (s *ReportService) accessible(ctx context.Context, p *access.Principal, prefix string) ([]*report.Definition, error) {
	defs, err := s.repo.ListByPathPrefix(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]*report.Definition, 0, len(defs))
	for _, d := range defs {
		if access.CanAccess(p, d.Restrictions()) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListReports returns a page of the reports p may access.
func (s *ReportService) ListReports(ctx context.Context, p *access.Principal, input ListReportsInput) (pagination.Result[*report.Definition], error) {
	defs, err := s.accessible(ctx, p, input.Prefix)
	if err != nil {
		return pagination.Result[*report.Definition]{}, err
	}

	if input.Sort != "" {
		opt := pagination.NewSortOption(reportSortFields).Parse(input.Sort)
		if !opt.IsEmpty() {
			sortDefinitions(defs, opt)
		}
	}

	return pagination.Paginate(defs, pagination.New(input.Page, input.PerPage)), nil
}

// Menu builds the menu tree of the reports p may access.
func (s *ReportService) Menu(ctx context.Context, p *access.Principal, prefix string) (*menu.Tree, error) {
	defs, err := s.accessible(ctx, p, prefix)
	if err != nil {
		return nil, err
	}
	return menu.Build(defs), nil
}

// GetReport returns a report p may access.
func (s *ReportService) GetReport(ctx context.Context, p *access.Principal, id int) (*report.Definition, error) {
	if id <= 0 {
		return nil, report.ErrReportNotFound
	}

	def, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(p, def.Restrictions()) {
		s.logger.Debug("report access denied", "report_id", id, "user", principalName(p))
		return nil, report.ErrReportNotFound
	}
	return def, nil
}

// DescribeReport returns a report with its parameters. With withOptions the
// dropdown options are loaded concurrently; the first failure aborts.
func (s *ReportService) DescribeReport(ctx context.Context, p *access.Principal, id int, withOptions bool) (*ReportDetail, error) {
	def, err := s.GetReport(ctx, p, id)
	if err != nil {
		return nil, err
	}

	detail := &ReportDetail{Definition: def, Parameters: def.Parameters()}
	if !withOptions {
		return detail, nil
	}

	loaded := make([][]Option, len(detail.Parameters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(optionsConcurrency)
	for i, d := range detail.Parameters {
		if !d.IsDropdown() {
			continue
		}
		g.Go(func() error {
			opts, err := s.options(gctx, d)
			if err != nil {
				return fmt.Errorf("options for %s: %w", d.Name, err)
			}
			loaded[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.Options = make(map[string][]Option)
	for i, d := range detail.Parameters {
		if d.IsDropdown() {
			detail.Options[d.Name] = loaded[i]
		}
	}
	return detail, nil
}

// Options returns the choices of a dropdown parameter.
func (s *ReportService) Options(ctx context.Context, p *access.Principal, id int, name string) ([]Option, error) {
	def, err := s.GetReport(ctx, p, id)
	if err != nil {
		return nil, err
	}

	d, err := def.Parameter(name)
	if err != nil {
		return nil, err
	}
	if !d.IsDropdown() {
		return nil, fmt.Errorf("%w: %s", report.ErrNoDropdown, d.Name)
	}
	return s.options(ctx, d)
}

// options resolves static choices as key = value, otherwise runs the
// dropdown query: the first column is the key and the second the value, a
// single column serving as both.
func (s *ReportService) options(ctx context.Context, d report.Descriptor) ([]Option, error) {
	if len(d.StaticChoices) > 0 {
		out := make([]Option, 0, len(d.StaticChoices))
		for _, c := range d.StaticChoices {
			out = append(out, Option{Key: c, Value: c})
		}
		return out, nil
	}
	if d.DropdownQuery == nil {
		return nil, fmt.Errorf("%w: %s", report.ErrNoDropdown, d.Name)
	}

	table, err := s.runner.Lookup(ctx, s.target, *d.DropdownQuery)
	if err != nil {
		metrics.DropdownQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DropdownQueriesTotal.WithLabelValues("ok").Inc()

	out := make([]Option, 0, table.RowCount())
	for _, row := range table.Rows {
		switch {
		case len(row) >= 2:
			out = append(out, Option{Key: cellText(row[0]), Value: cellText(row[1])})
		case len(row) == 1:
			v := cellText(row[0])
			out = append(out, Option{Key: v, Value: v})
		}
	}
	return out, nil
}

// ExecuteReport binds the arguments to the report's parameters and runs its
// query with the report timeout. An empty result is not an error.
func (s *ReportService) ExecuteReport(ctx context.Context, p *access.Principal, input ExecuteReportInput) (*sqlstore.Table, error) {
	def, err := s.GetReport(ctx, p, input.ReportID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(def.SQL()) == "" {
		return nil, fmt.Errorf("%w: report %d has no query", shared.ErrValidation, def.ID())
	}

	bound, err := report.Bind(def.Parameters(), input.Args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table, err := s.runner.Execute(ctx, s.target, def.SQL(), bound)
	elapsed := time.Since(start)
	metrics.ReportExecutionDuration.Observe(elapsed.Seconds())

	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.ReportExecutionsTotal.WithLabelValues(status).Inc()
		s.logger.Warn("report execution failed",
			"report_id", def.ID(),
			"user", principalName(p),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	status := "ok"
	if table.RowCount() == 0 {
		status = "empty"
	}
	metrics.ReportExecutionsTotal.WithLabelValues(status).Inc()
	metrics.ReportRowsReturned.Observe(float64(table.RowCount()))

	s.logger.Info("report executed",
		"report_id", def.ID(),
		"user", principalName(p),
		"rows", table.RowCount(),
		"truncated", table.Truncated,
		"duration_ms", elapsed.Milliseconds(),
	)
	return table, nil
}

// TrailerItems executes a report and reads one load per row from its label
// and value columns. Blank column names select the first and second columns.
func (s *ReportService) TrailerItems(ctx context.Context, p *access.Principal, input TrailerChartInput) ([]trailer.Item, error) {
	table, err := s.ExecuteReport(ctx, p, input.ExecuteReportInput)
	if err != nil {
		return nil, err
	}
	return trailerItems(table, input.LabelColumn, input.ValueColumn)
}

func trailerItems(table *sqlstore.Table, labelCol, valueCol string) ([]trailer.Item, error) {
	li, err := columnOrDefault(table, labelCol, 0)
	if err != nil {
		return nil, err
	}
	vi, err := columnOrDefault(table, valueCol, 1)
	if err != nil {
		return nil, err
	}

	items := make([]trailer.Item, 0, table.RowCount())
	for _, row := range table.Rows {
		v, err := cellNumber(row[vi])
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", shared.ErrValidation, table.Columns[vi].Name, err)
		}
		items = append(items, trailer.Item{Label: cellText(row[li]), Value: v})
	}
	return items, nil
}

func columnOrDefault(table *sqlstore.Table, name string, fallback int) (int, error) {
	if name == "" {
		if fallback >= len(table.Columns) {
			return 0, fmt.Errorf("%w: result has %d columns", shared.ErrValidation, len(table.Columns))
		}
		return fallback, nil
	}
	i := table.ColumnIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("%w: no column %q in result", shared.ErrValidation, name)
	}
	return i, nil
}

func principalName(p *access.Principal) string {
	if p == nil {
		return ""
	}
	return p.Username
}
