package http

import (
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router is the routing surface handlers and routes are registered on.
// Route middleware applies in order: the first one listed runs first.
//
//	r.GET("/menu", h.Get, requestTimeout)
//	r.POST("/reports/{id}/execute", h.Execute, reportTimeout)
type Router interface {
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group mounts routes under prefix. Group middleware runs for every
	// route in the group, including its 404 and 405 responses.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware for every route on the router.
	Use(middlewares ...Middleware)

	Handler() http.Handler

	// Walk visits every registered route.
	Walk(fn func(method, path string, handler http.Handler) error) error
}

// Chain applies middlewares to a handler, the first one outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
