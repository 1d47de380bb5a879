// Package errs defines the error taxonomy used across the dashboard backend.
// Remote failures are classified so the API surface can offer different
// remediation per kind; conflict and storage errors are diagnostics and
// never abort aggregation.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for metrics labels.
type Kind string

const (
	// KindNetwork covers transport failures and cancelled requests
	KindNetwork Kind = "network"

	// KindHTTP covers non-2xx responses; Status and Body carry the details
	KindHTTP Kind = "http"

	// KindParsing covers responses whose JSON shape is unexpected
	KindParsing Kind = "parsing"

	// KindConflict marks a provider owner disagreement between responses
	KindConflict Kind = "conflict"

	// KindStorage marks a color-map persistence failure
	KindStorage Kind = "storage"
)

// Error is a classified error with operation context.
type Error struct {
	Kind Kind
	Op   string

	// Status and Body are set for KindHTTP only
	Status int
	Body   string

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTP:
		if e.Body != "" {
			return fmt.Sprintf("%s: %s error: status %d, body: %s", e.Op, e.Kind, e.Status, e.Body)
		}
		return fmt.Sprintf("%s: %s error: status %d", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation context.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// HTTP builds a KindHTTP error carrying the response status and body.
func HTTP(op string, status int, body string) *Error {
	return &Error{Kind: KindHTTP, Op: op, Status: status, Body: body}
}

// KindOf extracts the kind of a classified error, or "" for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified with the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
