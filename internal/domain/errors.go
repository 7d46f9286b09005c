package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers wrap one of these and classify with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrUpstream      = errors.New("upstream failure")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

// Upstream wraps a provider error so that both the kind and the cause stay inspectable.
func Upstream(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, provider, err)
}
