// Package errs holds the sentinel errors shared between the root façade
// and its internal collaborators (region, filecache). It exists so that
// internal/region and internal/filecache can return errors the root
// package recognizes via errors.Is without importing the root package
// itself, which would create an import cycle.
package errs

import "errors"

var (
	ErrInvalidUsage = errors.New("clod: invalid usage")
	ErrMalformed    = errors.New("clod: malformed region data")
	ErrNotFound     = errors.New("clod: chunk not found")
	ErrClosedInUse  = errors.New("clod: close called while region is in use")
)
