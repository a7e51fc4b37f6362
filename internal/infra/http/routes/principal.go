package routes

import (
	"github.com/queryex/api/internal/infra/http/handler"
)

// registerPrincipalRoutes registers the current-user endpoints.
func registerPrincipalRoutes(router Router, h *handler.PrincipalHandler, requestTimeout Middleware) {
	router.GET("/me", h.Me, requestTimeout)
	router.POST("/me/refresh", h.Refresh, requestTimeout)
}
