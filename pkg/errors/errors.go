// Package errors defines the error taxonomy shared by the crawler, the index
// engine, the crawl cache and the orchestrator. Sentinels are matched with
// errors.Is; the typed errors carry the details callers log.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrFetch            = errors.New("fetch failed")
	ErrMalformedLink    = errors.New("malformed link")
	ErrQueryParse       = errors.New("query parse error")
	ErrIndexSealed      = errors.New("index is sealed")
	ErrCachePersistence = errors.New("cache persistence failure")
	ErrInvalidInput     = errors.New("invalid input")
)

// FetchReason classifies why a page could not be retrieved.
type FetchReason string

const (
	ReasonTimeout           FetchReason = "timeout"
	ReasonContentType       FetchReason = "unsupported_content_type"
	ReasonHTTPStatus        FetchReason = "http_status"
	ReasonUnsupportedScheme FetchReason = "unsupported_scheme"
	ReasonTransport         FetchReason = "transport"
	ReasonParse             FetchReason = "parse"
)

// FetchError aborts the crawl branch rooted at URL.
type FetchError struct {
	URL    string
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetching %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// MalformedLinkError reports an href that could not be turned into an
// absolute URL.
type MalformedLinkError struct {
	Page string
	Href string
	Err  error
}

func (e *MalformedLinkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed link %q on %s", e.Href, e.Page)
	}
	return fmt.Sprintf("malformed link %q on %s: %v", e.Href, e.Page, e.Err)
}

func (e *MalformedLinkError) Unwrap() error {
	return ErrMalformedLink
}

// PersistenceError wraps an I/O failure on the cache directory file or on a
// storage location.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrCachePersistence, e.Err}
}

// Persistence builds a PersistenceError for op on path.
func Persistence(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInput):
		return 2
	case errors.Is(err, ErrCachePersistence):
		return 3
	case errors.Is(err, ErrIndexSealed):
		return 4
	default:
		return 1
	}
}
