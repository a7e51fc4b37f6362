package handler

import (
	"net/http"

	"github.com/queryex/api/internal/app"
	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/logger"
)

// PrincipalHandler exposes the caller's resolved principal.
type PrincipalHandler struct {
	service *app.PrincipalService
	logger  *logger.Logger
}

// NewPrincipalHandler creates a new principal handler.
func NewPrincipalHandler(svc *app.PrincipalService, log *logger.Logger) *PrincipalHandler {
	return &PrincipalHandler{
		service: svc,
		logger:  log.With("handler", "principal"),
	}
}

// Me handles GET /api/v1/me
func (h *PrincipalHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		apierror.Unauthorized("").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Refresh handles POST /api/v1/me/refresh
// The cached principal is dropped and resolved again from the directory.
func (h *PrincipalHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		apierror.Unauthorized("").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}

	p, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, "Principal", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
