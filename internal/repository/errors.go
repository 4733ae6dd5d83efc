package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidID is returned when an identifier is not well formed.
	// No entity can exist under such an id.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate field value")

	// ErrConflict is returned when a conditional write matched no rows
	// because the entity is no longer in the expected state.
	ErrConflict = errors.New("entity state changed")
)
