// Package shared holds the error kinds every domain package wraps.
package shared

import "errors"

// Error kinds. Domain packages wrap one of these with %w so the transport
// layer can pick a status code with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation error")
	ErrNotConfigured = errors.New("not configured")
	ErrQueryFailed   = errors.New("query failed")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
