package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be a non-negative number", ErrValidation)
	ErrDuplicateCategory = errors.New("Category already exists")
	ErrProtected         = errors.New("the Other category cannot be deleted")
	ErrUnknownCategory   = errors.New("category does not exist")
	ErrNotInitialized    = errors.New("global state has not been initialized")
	ErrNotFound          = errors.New("not found")
	ErrAINotConfigured   = errors.New("AI provider not configured")
)

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
