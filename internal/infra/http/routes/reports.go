package routes

import (
	"github.com/queryex/api/internal/infra/http/handler"
)

// registerReportRoutes registers the menu, catalog and execution endpoints.
// Execution and report charts are rate limited per user and run under the
// report timeout; everything else under the request timeout.
func registerReportRoutes(
	router Router,
	reports *handler.ReportHandler,
	menu *handler.MenuHandler,
	charts *handler.ChartHandler,
	requestTimeout Middleware,
	execution []Middleware,
) {
	router.GET("/menu", menu.Get, requestTimeout)

	router.Group("/reports", func(r Router) {
		r.GET("/", reports.List, requestTimeout)
		r.GET("/{id}", reports.Get, requestTimeout)
		r.GET("/{id}/parameters/{name}/options", reports.Options, requestTimeout)
		r.POST("/{id}/execute", reports.Execute, execution...)
		r.POST("/{id}/charts/trailer", charts.ReportTrailer, execution...)
	})

	router.POST("/charts/trailer", charts.Trailer, requestTimeout)
}
