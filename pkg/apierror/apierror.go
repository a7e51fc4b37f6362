// Package apierror renders failures as the JSON error body every endpoint
// shares.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error identifier sent to clients.
type Code string

const (
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeNotConfigured     Code = "NOT_CONFIGURED"
	CodeQueryFailed       Code = "QUERY_FAILED"
	CodeTimeout           Code = "TIMEOUT"
)

// Error is an HTTP-ready failure. Err is logged by callers but never
// serialized.
type Error struct {
	Status  int
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the wire form of an Error.
type Response struct {
	Error     string `json:"error"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSONWithRequestID writes the error body with e.Status. A non-empty
// requestID is echoed in both the body and the X-Request-ID header.
func (e *Error) WriteJSONWithRequestID(w http.ResponseWriter, requestID string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	if requestID != "" {
		h.Set("X-Request-ID", requestID)
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(Response{
		Error:     string(e.Code),
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		RequestID: requestID,
	})
}

// New builds an Error without an underlying cause.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func wrap(status int, code Code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, orDefault(message, "Authentication required"))
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, orDefault(message, "Access denied"))
}

// NotFound names the missing resource, e.g. NotFound("Report") gives
// "Report not found".
func NotFound(resource string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", orDefault(resource, "Resource")))
}

// ValidationFailed is a 422 carrying per-field details.
func ValidationFailed(message string, details any) *Error {
	e := New(http.StatusUnprocessableEntity, CodeValidationFailed, message)
	e.Details = details
	return e
}

// NotConfigured is a 503 for a database target or other resource the server
// has no configuration for.
func NotConfigured(err error) *Error {
	return wrap(http.StatusServiceUnavailable, CodeNotConfigured, "The requested resource is not configured", err)
}

// QueryFailed is a 502. The driver message stays in Err.
func QueryFailed(err error) *Error {
	return wrap(http.StatusBadGateway, CodeQueryFailed, "The query could not be executed", err)
}

func Timeout(err error) *Error {
	return wrap(http.StatusGatewayTimeout, CodeTimeout, "The query timed out", err)
}

func InternalError(err error) *Error {
	return wrap(http.StatusInternalServerError, CodeInternalError, "An internal error occurred", err)
}

func RateLimitExceeded() *Error {
	return New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
}

// FromError returns err itself when it already is an *Error and a 500
// otherwise.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalError(err)
}

// ValidationError is one field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
