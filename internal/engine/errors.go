package engine

import (
	"errors"
	"fmt"
)

// ValidationError precondition gagal: operasi ditolak utuh, tanpa mutasi.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
