package handler

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/queryex/api/internal/app"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/trailer"
	"github.com/queryex/api/pkg/validator"
)

// chartCSP allows the inline styles of the rendered SVG.
const chartCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'self'"

// ChartHandler renders trailer load charts.
type ChartHandler struct {
	service   *app.ReportService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(svc *app.ReportService, v *validator.Validator, log *logger.Logger) *ChartHandler {
	return &ChartHandler{
		service:   svc,
		validator: v,
		logger:    log.With("handler", "chart"),
	}
}

// TrailerChartRequest renders loads given directly.
type TrailerChartRequest struct {
	Items []trailer.Item `json:"items" validate:"required,min=1,max=500,dive"`
}

// ReportTrailerChartRequest renders the result of a report. Blank column
// names select the first and second result columns.
type ReportTrailerChartRequest struct {
	Args        report.Args `json:"args" validate:"max=200,dive"`
	LabelColumn string      `json:"label_column" validate:"max=128"`
	ValueColumn string      `json:"value_column" validate:"max=128"`
}

// Trailer handles POST /api/v1/charts/trailer
func (h *ChartHandler) Trailer(w http.ResponseWriter, r *http.Request) {
	var req TrailerChartRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.BadRequest("Invalid JSON").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	h.render(w, r, req.Items)
}

// ReportTrailer handles POST /api/v1/reports/{id}/charts/trailer
func (h *ChartHandler) ReportTrailer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.NotFound("Report").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	var req ReportTrailerChartRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.BadRequest("Invalid JSON").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	items, err := h.service.TrailerItems(r.Context(), middleware.GetPrincipal(r.Context()), app.TrailerChartInput{
		ExecuteReportInput: app.ExecuteReportInput{ReportID: id, Args: req.Args},
		LabelColumn:        req.LabelColumn,
		ValueColumn:        req.ValueColumn,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, "Report", err)
		return
	}

	h.render(w, r, items)
}

func (h *ChartHandler) render(w http.ResponseWriter, r *http.Request, items []trailer.Item) {
	box := trailer.DefaultBox
	cells := trailer.Layout(items, box, trailer.DefaultScale.Fit(items))

	var buf bytes.Buffer
	if err := trailer.Render(&buf, box, cells); err != nil {
		h.logger.Error("render trailer chart", "error", err)
		apierror.InternalError(err).WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Security-Policy", chartCSP)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
