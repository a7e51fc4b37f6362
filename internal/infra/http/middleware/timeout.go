package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/queryex/api/pkg/apierror"
)

// Timeout bounds the request context. When the handler has not written
// anything by the deadline a 504 is sent. Either way, writes made after the
// deadline are dropped.
// Report execution routes use a longer timeout than the rest of the API.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan any, 1)
			tw := &timeoutWriter{ResponseWriter: w, header: make(http.Header)}

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				if !tw.wroteHeader {
					copyHeader(w.Header(), tw.header)
				}
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				// Writes after this point are dropped even when the handler
				// already started its response.
				tw.timedOut = true
				if !tw.wroteHeader {
					apierror.New(http.StatusGatewayTimeout, apierror.CodeTimeout, "Request timeout").
						WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				}
			}
		})
	}
}

// timeoutWriter buffers headers until the handler commits to a response so
// a late timeout can still answer cleanly.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	header      http.Header
	wroteHeader bool
	flushed     bool
	status      int
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.status = code
	tw.flush()
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, context.DeadlineExceeded
	}
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.status = http.StatusOK
	}
	tw.flush()
	return tw.ResponseWriter.Write(b)
}

// flush copies buffered headers and the status line once. Callers hold mu.
func (tw *timeoutWriter) flush() {
	if tw.flushed || !tw.wroteHeader {
		return
	}
	copyHeader(tw.ResponseWriter.Header(), tw.header)
	tw.ResponseWriter.WriteHeader(tw.status)
	tw.flushed = true
}

func copyHeader(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
