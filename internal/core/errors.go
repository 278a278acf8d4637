package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrConflict          = errors.New("already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")

	// ErrAmountTooLarge is an ErrInvalidAmount whose minor units overflow int64.
	ErrAmountTooLarge = fmt.Errorf("%w: too large", ErrInvalidAmount)
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
