package clod

import (
	"errors"

	"github.com/clodstore/clod/internal/errs"
)

// Result is the public outcome of a region façade operation (spec §6).
type Result int

const (
	OK Result = iota
	InvalidUsage
	Malformed
	NotFound
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case InvalidUsage:
		return "INVALID_USAGE"
	case Malformed:
		return "MALFORMED"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors returned by the region façade and its collaborators.
// Wrap these with fmt.Errorf("...: %w", err) at every layer boundary so
// callers can still errors.Is against them.
var (
	ErrInvalidUsage = errs.ErrInvalidUsage
	ErrMalformed    = errs.ErrMalformed
	ErrNotFound     = errs.ErrNotFound
	ErrClosedInUse  = errs.ErrClosedInUse
)

// ResultOf maps an error produced anywhere in the store back to the
// public four-value result surface described in spec §6.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrMalformed):
		return Malformed
	case errors.Is(err, ErrInvalidUsage):
		return InvalidUsage
	default:
		return InvalidUsage
	}
}
