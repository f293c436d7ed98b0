// Package lookup wraps the third-party weather and web search APIs and turns
// their responses into short plain-text answers.
package lookup

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("lookup: upstream error")

	// ErrMissingCredential indicates the search API key is not configured.
	ErrMissingCredential = errors.New("lookup: search API key is not configured")

	// ErrEmptyQuery indicates a blank location or query.
	ErrEmptyQuery = errors.New("lookup: query is empty")
)

// UpstreamError reports a non-success HTTP status from an upstream API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned HTTP %d", e.Service, e.StatusCode)
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
