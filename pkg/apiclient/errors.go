package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidResponse is returned when a health endpoint answers with a body
// that is not the expected JSON envelope.
var ErrInvalidResponse = errors.New("invalid health response")

// APIError represents an error response from the server. Archive errors
// arrive as RFC 7807 problem details.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Title)
}

// IsNotFound returns true if the archive does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnavailable returns true if the server reported itself unready.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsNotFound reports whether err is an *APIError for a missing archive.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
