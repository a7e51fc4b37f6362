package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/apierror"
)

type chiRouter struct {
	mux chi.Router
}

var _ Router = (*chiRouter)(nil)

// NewChiRouter creates a Router backed by chi. Unknown paths and methods
// answer with the API's JSON error body.
func NewChiRouter() Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)       // rate limiter keys on the client address
	r.Use(chimw.CleanPath)    // collapse double slashes
	r.Use(chimw.StripSlashes) // /api/v1/reports/ == /api/v1/reports

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	return &chiRouter{mux: r}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	apierror.NotFound("Route").WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apierror.New(http.StatusMethodNotAllowed, apierror.CodeBadRequest, "Method not allowed").
		WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

func (r *chiRouter) GET(path string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.mux.Method(http.MethodGet, path, Chain(handler, middlewares...))
}

func (r *chiRouter) POST(path string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.mux.Method(http.MethodPost, path, Chain(handler, middlewares...))
}

func (r *chiRouter) Group(prefix string, fn func(Router), middlewares ...Middleware) {
	r.mux.Route(prefix, func(sub chi.Router) {
		for _, mw := range middlewares {
			sub.Use(mw)
		}
		fn(&chiRouter{mux: sub})
	})
}

func (r *chiRouter) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

func (r *chiRouter) Handler() http.Handler {
	return r.mux
}

func (r *chiRouter) Walk(fn func(method, path string, handler http.Handler) error) error {
	return chi.Walk(r.mux, func(method, route string, handler http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route == "/*" {
			return nil
		}
		return fn(method, route, handler)
	})
}
