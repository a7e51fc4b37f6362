package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/logger"
)

// Recovery turns a handler panic into a 500. Stack traces are logged only
// outside production.
func Recovery(log *logger.Logger, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				attrs := []any{"panic", rec, "path", r.URL.Path, "request_id", requestID}
				if !isProduction {
					attrs = append(attrs, "stack", string(debug.Stack()))
				}
				log.Error("panic recovered", attrs...)

				apierror.InternalError(nil).WriteJSONWithRequestID(w, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
