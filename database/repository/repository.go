package repository

import "errors"

var (
	// ErrNotFound is returned when a document does not exist in the caller's tenant.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned when a guarded update lost a race:
	// the document changed since it was read.
	ErrVersionConflict = errors.New("document was modified concurrently")

	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate key")
)
