package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned when a username or email is already registered.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrAuthFailure is the single, non-distinguishing credential failure.
	ErrAuthFailure = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a request has no live session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreUnavailable wraps unexpected failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidCandidate is returned when a registration is missing required fields.
	ErrInvalidCandidate = errors.New("invalid registration")
)

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
