package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/queryex/api/pkg/apierror"
)

// compressMinSize keeps small JSON answers uncompressed.
const compressMinSize = 1024

// Compress gzips responses for clients that accept it. Report results are
// the large payloads this targets.
func Compress() (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(compressMinSize),
		gzhttp.CompressionLevel(gzip.DefaultCompression),
		gzhttp.ContentTypes([]string{"application/json", "image/svg+xml", "text/plain"}),
	)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}

// Decompress decodes gzip or zstd request bodies, capping the decoded size
// at maxBytes. Other encodings are rejected with 415.
func Decompress(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			if encoding == "" || encoding == "identity" || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			var (
				decoded io.Reader
				closeFn func()
			)
			switch encoding {
			case "gzip":
				gz, err := gzip.NewReader(r.Body)
				if err != nil {
					apierror.BadRequest("Invalid gzip body").WriteJSONWithRequestID(w, GetRequestID(r.Context()))
					return
				}
				decoded, closeFn = gz, func() { _ = gz.Close() }
			case "zstd":
				zr, err := zstd.NewReader(r.Body, zstd.WithDecoderMaxMemory(uint64(maxBytes)))
				if err != nil {
					apierror.BadRequest("Invalid zstd body").WriteJSONWithRequestID(w, GetRequestID(r.Context()))
					return
				}
				decoded, closeFn = zr, zr.Close
			default:
				apierror.New(http.StatusUnsupportedMediaType, apierror.CodeBadRequest, "Unsupported Content-Encoding").
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}
			defer closeFn()

			r.Body = http.MaxBytesReader(w, io.NopCloser(decoded), maxBytes)
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")
			r.ContentLength = -1

			next.ServeHTTP(w, r)
		})
	}
}
