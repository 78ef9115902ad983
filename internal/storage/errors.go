package storage

import "errors"

var (
	// ErrNotFound is returned when no archived swap matches a lookup key.
	ErrNotFound = errors.New("swap not archived")

	// ErrInvalidInput is returned for nil swaps, swaps missing a key column
	// and empty lookup arguments.
	ErrInvalidInput = errors.New("invalid swap input")
)
