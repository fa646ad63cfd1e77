package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/relwatch/relwatch/client"
)

// ErrNotFound is returned when a project or ecosystem is not found.
var ErrNotFound = errors.New("not found")

// FetchKind classifies a failed backend fetch.
type FetchKind string

const (
	FetchUnreachable FetchKind = "unreachable"
	FetchTimeout     FetchKind = "timeout"
	FetchHTTPStatus  FetchKind = "http_status"
	FetchMalformed   FetchKind = "malformed_response"
)

// FetchError is a failed backend fetch. Backends never retry; retry policy
// belongs to the check runner.
type FetchError struct {
	Kind       FetchKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt could plausibly succeed.
// Client errors (4xx other than 429) and malformed payloads are final.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchUnreachable:
		return true
	case FetchHTTPStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// WrapFetch classifies err into a FetchError for the given URL. A nil err
// returns nil.
func WrapFetch(url string, err error) *FetchError {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return &FetchError{Kind: FetchHTTPStatus, URL: url, StatusCode: httpErr.StatusCode, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &FetchError{Kind: FetchMalformed, URL: url, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	}

	return &FetchError{Kind: FetchUnreachable, URL: url, Err: err}
}

// MalformedError marks an upstream payload that decoded but made no sense.
func MalformedError(url string, err error) *FetchError {
	return &FetchError{Kind: FetchMalformed, URL: url, Err: err}
}

// ParseKind classifies a version string that could not be normalized.
type ParseKind string

const (
	ParseEmpty        ParseKind = "empty"
	ParseUnrecognized ParseKind = "unrecognized"
)

// ParseError is a raw version string with no comparable segments after
// normalization. Per-string; never fatal to a whole check.
type ParseError struct {
	Kind ParseKind
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("version %q: %s", e.Raw, e.Kind)
}

// ConflictError is a violated uniqueness or concurrency constraint:
// a duplicate (name, ecosystem) pair, or a stale latest-version write.
type ConflictError struct {
	Name      string
	Ecosystem string
	Reason    string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("project %s (%s): %s", e.Name, e.Ecosystem, e.Reason)
	}
	return fmt.Sprintf("project %s already exists in ecosystem %s", e.Name, e.Ecosystem)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
