package codelens

import "errors"

var (
	// ErrBackendGone is returned when a lens's backend was deregistered
	// between lens discovery and use.
	ErrBackendGone = errors.New("codelens: backend no longer exists")
	// ErrNoDocument is returned when no document is active.
	ErrNoDocument = errors.New("codelens: no active document")
)
