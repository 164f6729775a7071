package post

import "errors"

var (
	// ErrNotFound is returned when no post matches the requested slug.
	ErrNotFound = errors.New("post not found")

	// ErrConstraint is returned when the store rejects a write because it
	// references an unknown category or tag, or because the slug is taken.
	ErrConstraint = errors.New("constraint violation")

	// ErrInvalid is returned when input fails validation before reaching
	// the store.
	ErrInvalid = errors.New("invalid post")
)
