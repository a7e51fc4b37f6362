package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/queryex/api/internal/app"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/internal/infra/sqlstore"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/validator"
)

// ReportHandler handles report catalog and execution requests.
type ReportHandler struct {
	service   *app.ReportService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *app.ReportService, v *validator.Validator, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service:   svc,
		validator: v,
		logger:    log.With("handler", "report"),
	}
}

// ReportResponse represents a report in API responses. The query text is
// included for administrators only.
type ReportResponse struct {
	ID                int              `json:"id"`
	Title             string           `json:"title"`
	Path              []string         `json:"path"`
	RawPath           string           `json:"raw_path"`
	ParameterNames    []string         `json:"parameter_names"`
	ColumnOverrides   []string         `json:"column_overrides,omitempty"`
	ExcelGroupColumns []string         `json:"excel_group_columns,omitempty"`
	ExcelSumColumns   []string         `json:"excel_sum_columns,omitempty"`
	Delivery          *report.Delivery `json:"delivery,omitempty"`
	Editable          bool             `json:"editable"`
	SQL               string           `json:"sql,omitempty"`
}

// ReportDetailResponse is a report with its parameter descriptors and,
// when requested, dropdown options keyed by parameter name.
type ReportDetailResponse struct {
	ReportResponse
	Parameters []report.Descriptor     `json:"parameters"`
	Options    map[string][]app.Option `json:"options,omitempty"`
}

// OptionsResponse lists the choices of a dropdown parameter.
type OptionsResponse struct {
	Parameter string       `json:"parameter"`
	Options   []app.Option `json:"options"`
}

// ExecuteReportRequest is the body of an execute request.
type ExecuteReportRequest struct {
	Args report.Args `json:"args" validate:"max=200,dive"`
}

// ExecuteReportResponse is a tabular result.
type ExecuteReportResponse struct {
	ReportID   int               `json:"report_id"`
	Columns    []sqlstore.Column `json:"columns"`
	Rows       [][]any           `json:"rows"`
	RowCount   int               `json:"row_count"`
	Truncated  bool              `json:"truncated"`
	ExecutedAt time.Time         `json:"executed_at"`
}

// ListReportsRequest holds the query parameters of a list request.
type ListReportsRequest struct {
	Prefix string `validate:"max=500,report_path"`
	Sort   string `validate:"max=100"`
}

func toReportResponse(d *report.Definition, p *access.Principal) ReportResponse {
	resp := ReportResponse{
		ID:                d.ID(),
		Title:             d.Title(),
		Path:              d.Path(),
		RawPath:           d.RawPath(),
		ParameterNames:    d.ParameterNames(),
		ColumnOverrides:   d.ColumnOverrides(),
		ExcelGroupColumns: d.ExcelGroupColumns(),
		ExcelSumColumns:   d.ExcelSumColumns(),
		Editable:          d.Editable(),
	}
	if delivery := d.Delivery(); delivery.Automatic || len(delivery.Recipients) > 0 {
		resp.Delivery = &delivery
	}
	if p != nil && p.Admin {
		resp.SQL = d.SQL()
	}
	return resp
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	query := r.URL.Query()

	req := ListReportsRequest{Prefix: query.Get("prefix"), Sort: query.Get("sort")}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	result, err := h.service.ListReports(r.Context(), principal, app.ListReportsInput{
		Prefix:  req.Prefix,
		Sort:    req.Sort,
		Page:    parseQueryInt(query.Get("page"), 1),
		PerPage: parseQueryInt(query.Get("per_page"), 20),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, "Report", err)
		return
	}

	data := make([]ReportResponse, len(result.Data))
	for i, d := range result.Data {
		data[i] = toReportResponse(d, principal)
	}

	writeJSON(w, http.StatusOK, ListResponse[ReportResponse]{
		Data:       data,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		Links:      NewPaginationLinks(r, result.Page, result.PerPage, result.TotalPages),
	})
}

// Get handles GET /api/v1/reports/{id}
// With ?options=true the dropdown options of every parameter are included.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.NotFound("Report").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	detail, err := h.service.DescribeReport(r.Context(), principal, id, parseQueryBool(r.URL.Query().Get("options")))
	if err != nil {
		handleServiceError(w, r, h.logger, "Report", err)
		return
	}

	writeJSON(w, http.StatusOK, ReportDetailResponse{
		ReportResponse: toReportResponse(detail.Definition, principal),
		Parameters:     detail.Parameters,
		Options:        detail.Options,
	})
}

// Options handles GET /api/v1/reports/{id}/parameters/{name}/options
func (h *ReportHandler) Options(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.NotFound("Report").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	name := chi.URLParam(r, "name")

	opts, err := h.service.Options(r.Context(), middleware.GetPrincipal(r.Context()), id, name)
	if err != nil {
		handleServiceError(w, r, h.logger, "Parameter", err)
		return
	}

	writeJSON(w, http.StatusOK, OptionsResponse{Parameter: name, Options: opts})
}

// Execute handles POST /api/v1/reports/{id}/execute
func (h *ReportHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.NotFound("Report").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	var req ExecuteReportRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.BadRequest("Invalid JSON").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	table, err := h.service.ExecuteReport(r.Context(), middleware.GetPrincipal(r.Context()), app.ExecuteReportInput{
		ReportID: id,
		Args:     req.Args,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, "Report", err)
		return
	}

	rows := table.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, ExecuteReportResponse{
		ReportID:   id,
		Columns:    table.Columns,
		Rows:       rows,
		RowCount:   table.RowCount(),
		Truncated:  table.Truncated,
		ExecutedAt: time.Now().UTC(),
	})
}
