package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/queryex/api/internal/infra/http/middleware"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/domain/shared"
	"github.com/queryex/api/pkg/logger"
	"github.com/queryex/api/pkg/validator"
)

// PaginationLinks points at neighbouring pages of a list response.
type PaginationLinks struct {
	Self  string `json:"self"`
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// ListResponse is the envelope for paginated lists.
type ListResponse[T any] struct {
	Data       []T              `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	Links      *PaginationLinks `json:"links,omitempty"`
}

// NewPaginationLinks derives page links from r, keeping every other query
// parameter (prefix, sort) intact. It returns nil for an empty list.
func NewPaginationLinks(r *http.Request, page, perPage, totalPages int) *PaginationLinks {
	if totalPages == 0 {
		return nil
	}

	u := requestURL(r)
	at := func(n int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("per_page", strconv.Itoa(perPage))
		u.RawQuery = q.Encode()
		return u.String()
	}

	links := &PaginationLinks{Self: at(page), First: at(1)}
	if page > 1 {
		links.Prev = at(page - 1)
	}
	if page < totalPages {
		links.Next = at(page + 1)
	}
	if totalPages > 1 {
		links.Last = at(totalPages)
	}
	return links
}

// requestURL rebuilds the externally visible URL of r, honouring the
// X-Forwarded-Proto and X-Forwarded-Host headers set by a proxy.
func requestURL(r *http.Request) url.URL {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && r.TLS == nil {
		u.Scheme = proto
	}
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		u.Host = host
	}
	return u
}

// parseQueryInt falls back to def for an empty or malformed value.
func parseQueryInt(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// parseQueryBool accepts "true" and "1" as true.
func parseQueryBool(s string) bool {
	return s == "true" || s == "1"
}

// parseID parses a positive numeric path identifier. Malformed identifiers
// are answered like unknown ones.
func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func handleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		apierror.BadRequest("Validation error").WriteJSONWithRequestID(w, requestID)
		return
	}
	details := make([]apierror.ValidationError, 0, len(fields))
	for _, f := range fields {
		details = append(details, apierror.ValidationError{Field: f.Field, Message: f.Message})
	}
	apierror.ValidationFailed("Validation failed", details).WriteJSONWithRequestID(w, requestID)
}

// handleServiceError maps domain errors onto API errors. Query failures keep
// the driver message out of the response and in the log.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, resource string, err error) {
	requestID := middleware.GetRequestID(r.Context())

	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound(resource).WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, shared.ErrUnauthorized):
		apierror.Unauthorized("").WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("").WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("query timed out", "error", err, "request_id", requestID)
		apierror.Timeout(err).WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		log.Debug("request canceled", "request_id", requestID)
	case errors.Is(err, shared.ErrNotConfigured):
		log.Error("target not configured", "error", err, "request_id", requestID)
		apierror.NotConfigured(err).WriteJSONWithRequestID(w, requestID)
	case errors.Is(err, shared.ErrQueryFailed):
		log.Error("query failed", "error", err, "request_id", requestID)
		apierror.QueryFailed(err).WriteJSONWithRequestID(w, requestID)
	default:
		log.Error("service error", "error", err, "request_id", requestID)
		apierror.FromError(err).WriteJSONWithRequestID(w, requestID)
	}
}
