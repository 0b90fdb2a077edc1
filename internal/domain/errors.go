package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when an identifier or payload fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the requested record or history does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRegistered is returned when a user is registered twice for the same activity.
	ErrAlreadyRegistered = errors.New("user already registered for activity")
	// ErrStoreUnavailable wraps any failure of the participation store.
	ErrStoreUnavailable = errors.New("participation store unavailable")
	// ErrRenderFailure wraps failures of the certificate renderer.
	ErrRenderFailure = errors.New("certificate render failed")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(detail string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, detail)
}

// storeFailure classifies an error coming back from the store. Domain
// sentinels pass through; everything else becomes ErrStoreUnavailable.
func storeFailure(op string, err error) error {
	if errors.Is(err, ErrAlreadyRegistered) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
