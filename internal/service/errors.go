package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFoundOrForbidden is the single outcome of an ownership-gated
	// update whose target is missing or belongs to someone else.
	ErrNotFoundOrForbidden = errors.New("not found or forbidden")

	// ErrInvalidInput marks validation failures; the wrapped message is
	// safe to show to clients.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
