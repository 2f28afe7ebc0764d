package core

import (
	"errors"
	"fmt"

	"github.com/Duval1703/chatbot/internal/store"
)

var (
	// ErrNotFound: the session does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrUpstream: the model or the translation API failed. Never returned to
	// HTTP callers; the generator and translator degrade instead.
	ErrUpstream = errors.New("upstream failure")
	// ErrPersistence: a store read or write failed.
	ErrPersistence = errors.New("persistence failure")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// storeError classifies a store error for the boundary layer.
func storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
