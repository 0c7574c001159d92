package repository

import "errors"

var (
	// ErrEmailExists is returned when an insert collides with the unique
	// email index.
	ErrEmailExists = errors.New("email already exists")

	// ErrNotFound is returned when no user matches the given lookup key.
	ErrNotFound = errors.New("user not found")

	// ErrTokenNotFound is returned by refresh-token operations whose
	// conditional update matched no stored token. For rotation this is the
	// at-most-once guarantee: a second rotation with the same token finds
	// nothing to replace.
	ErrTokenNotFound = errors.New("refresh token not found")
)
