package contacts

import "errors"

var (
	// ErrValidation wraps any rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers missing contacts and contacts owned by someone else.
	ErrNotFound = errors.New("contact not found")
	// ErrInUse rejects deleting a contact that deals still reference.
	ErrInUse = errors.New("contact referenced by deals")
)
