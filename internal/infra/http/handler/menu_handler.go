package handler

import (
	"net/http"

	"github.com/queryex/api/internal/app"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/domain/menu"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/validator"
)

// MenuHandler serves the navigation tree.
type MenuHandler struct {
	service   *app.ReportService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(svc *app.ReportService, v *validator.Validator, log *logger.Logger) *MenuHandler {
	return &MenuHandler{
		service:   svc,
		validator: v,
		logger:    log.With("handler", "menu"),
	}
}

// MenuNode is one entry of the menu tree. Folders have children; report
// entries carry the report id and title. A node may be both.
type MenuNode struct {
	Name     string      `json:"name"`
	FullPath string      `json:"full_path"`
	ReportID *int        `json:"report_id,omitempty"`
	Title    string      `json:"title,omitempty"`
	Children []*MenuNode `json:"children,omitempty"`
}

// MenuResponse is the menu tree.
type MenuResponse struct {
	Items []*MenuNode `json:"items"`
}

func toMenuNodes(nodes []*menu.Node) []*MenuNode {
	out := make([]*MenuNode, 0, len(nodes))
	for _, n := range nodes {
		m := &MenuNode{Name: n.Name, FullPath: n.FullPath}
		if n.IsReport() {
			id := n.Report.ID()
			m.ReportID = &id
			m.Title = n.Report.Title()
		}
		if n.IsFolder() {
			m.Children = toMenuNodes(n.Children)
		}
		out = append(out, m)
	}
	return out
}

// Get handles GET /api/v1/menu
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	req := ListReportsRequest{Prefix: r.URL.Query().Get("prefix")}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	tree, err := h.service.Menu(r.Context(), middleware.GetPrincipal(r.Context()), req.Prefix)
	if err != nil {
		handleServiceError(w, r, h.logger, "Menu", err)
		return
	}

	writeJSON(w, http.StatusOK, MenuResponse{Items: toMenuNodes(tree.Roots())})
}
