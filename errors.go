package sigview

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned by Normalize. Both are non-fatal: Normalize still
// returns a usable slice alongside them.
var (
	ErrEmptySequence      = errors.New("empty sequence")
	ErrDegenerateSequence = errors.New("degenerate sequence: all values are equal")
)

// ErrNotCached is returned by a Cache when the requested URL has no entry.
var ErrNotCached = errors.New("blob not cached")

// LoadFailureError is returned when a blob cannot be fetched. Status is the
// HTTP status code if the server answered, or 0 otherwise.
type LoadFailureError struct {
	URL    string
	Status int
	Err    error
}

func (e *LoadFailureError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cannot load %q: server returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("cannot load %q: %v", e.URL, e.Err)
}

func (e *LoadFailureError) Unwrap() error { return e.Err }

// ParseError is returned when a blob is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "malformed JSON: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError is returned when a blob is valid JSON but does not have the
// shape of a signal set. Path points at the offending value.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid signal set: " + e.Reason
	}
	return fmt.Sprintf("invalid signal set at %s: %s", e.Path, e.Reason)
}

// IndexOutOfRangeError is returned when a trace index does not exist.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("trace index %d out of range [0, %d)", e.Index, e.Len)
}

// LengthMismatchError is returned when a trace has more samples than the X
// axis can place.
type LengthMismatchError struct {
	Trace string
	Len   int
	Max   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("trace %q has %d samples, X axis only has %d", e.Trace, e.Len, e.Max)
}
