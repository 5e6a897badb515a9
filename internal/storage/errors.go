package storage

import "errors"

// Errors shared by the report and transfer stores.
var (
	// ErrNotFound is returned when an address has no stored reports.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a report for an (address, computed_at)
	// pair already exists. Extraction runs are recorded append-only; a rerun
	// produces a new row rather than updating an old one.
	ErrDuplicateKey = errors.New("duplicate key: extraction runs are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
