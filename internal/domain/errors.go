package domain

import "errors"

var (
	// ErrNotFound is returned when a record or saved search id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPost is returned when a candidate post lacks required fields.
	ErrInvalidPost = errors.New("invalid post")

	// ErrInvalidRequest is returned for malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
)
