package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnreachable means no response was received after retries were
// exhausted. Safe to retry manually.
var ErrUnreachable = errors.New("server unreachable")

// APIError is a non-success response from the backend. Code is the
// machine-readable code from the response body when present, otherwise
// derived from the HTTP status.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Unauthorized reports whether the error is an authorization failure.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
