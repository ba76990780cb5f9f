package database

import "errors"

var (
	// ErrNotFound is returned when an update references a record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a create collides with an existing primary key.
	ErrDuplicateKey = errors.New("duplicate key")
)
