/*
errors.go - Centralized error types for the report engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers (HTTP handlers, exporters) decide presentation; nothing here is
  fatal to the process.

ERROR CATEGORIES:
  1. Configuration errors - empty selections, empty results
  2. Fetch failures - backend unreachable or malformed query
  3. Not-found errors - missing templates or entities

USAGE:
  if errors.Is(err, engine.ErrNoColumns) {
      // surface as a 400 with an explanatory message
  }
  var fe *engine.FetchError
  if errors.As(err, &fe) {
      // log fe.Entity, present an empty state
  }

SEE ALSO:
  - query.go: Wraps store failures in FetchError
  - api/handlers.go: Maps these to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoColumns is returned when a configuration selects no columns
	// (after stale column ids have been dropped).
	ErrNoColumns = errors.New("no columns selected")

	// ErrEmptyResult is returned when an export is requested for a
	// configuration that matches no rows. Previews render an empty state
	// instead; exports refuse to produce a zero-row file.
	ErrEmptyResult = errors.New("no rows match the report filters")

	// ErrFetchFailed is the base error for backend query failures.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrTemplateNotFound is returned when a referenced template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownEntity is returned when a query names an entity the store
	// does not serve.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidFilter is returned when a filter references a field that
	// cannot be resolved against the queried entity, or carries a value
	// that doesn't fit its operator (e.g. a between without two bounds).
	ErrInvalidFilter = errors.New("invalid filter")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FetchError wraps a backend failure with the entity that was being queried.
type FetchError struct {
	Entity Entity
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Entity, e.Err)
}

func (e *FetchError) Unwrap() error { return ErrFetchFailed }

// FilterError describes a filter that failed validation.
type FilterError struct {
	Field  string
	Op     FilterOp
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s %s: %s", e.Field, e.Op, e.Reason)
}

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is due to the caller's
// configuration rather than a backend failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoColumns) ||
		errors.Is(err, ErrEmptyResult) ||
		errors.Is(err, ErrInvalidFilter)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrEntityNotFound)
}

// IsFetchFailure returns true for backend query failures.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}
