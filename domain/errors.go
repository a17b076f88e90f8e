package domain

import "errors"

var (
	// ErrNotFound indicates an entity id that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a rejected export callback token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDelegation indicates the export webhook was unreachable or
	// misconfigured.
	ErrDelegation = errors.New("export delegation failed")
)
