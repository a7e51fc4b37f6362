package middleware

import (
	"fmt"
	"net/http"

	"github.com/queryex/api/pkg/apierror"
)

// DefaultMaxBodySize is used when no limit is configured.
const DefaultMaxBodySize = 1 << 20

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused with 413 before the handler runs; undeclared bodies
// fail on read.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	tooLarge := apierror.New(http.StatusRequestEntityTooLarge, apierror.CodeBadRequest,
		fmt.Sprintf("Request body exceeds %d bytes", maxBytes))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				tooLarge.WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
