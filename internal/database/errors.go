package database

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNotAvailable is returned when a campsite is closed by its
	// operator flag.
	ErrNotAvailable = errors.New("campsite is not available")

	// ErrDateConflict is returned when a date range overlaps an existing
	// confirmed or completed booking for the same campsite.
	ErrDateConflict = errors.New("dates overlap an existing booking")

	// ErrConcurrentModification is returned when a version-checked update
	// finds the record changed since it was read.
	ErrConcurrentModification = errors.New("record was modified concurrently")
)
