package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAuthRequired indicates the request carries no active merchant session.
	ErrAuthRequired = errors.New("authentication required")
	// ErrDuplicateEmail indicates a signup collision on email.
	ErrDuplicateEmail = errors.New("email already registered")
)
