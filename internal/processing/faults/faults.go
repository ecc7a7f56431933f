// Package faults holds the error categories shared by every processing
// package. Package-level sentinels are defined with Define so callers can
// match either the specific error or its category with errors.Is.
package faults

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrBackendUnavailable  = errors.New("backend unavailable")
	ErrValidation          = errors.New("validation failed")
	ErrGenerationExhausted = errors.New("code generation exhausted")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)

var categories = []error{
	ErrNotFound,
	ErrQuotaExceeded,
	ErrBackendUnavailable,
	ErrValidation,
	ErrGenerationExhausted,
	ErrConflict,
	ErrUnauthorized,
	ErrForbidden,
}

type categorized struct {
	kind error
	msg  string
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.kind }

// Define returns a new sentinel that matches kind.
func Define(kind error, msg string) error {
	return &categorized{kind: kind, msg: msg}
}

// Invalid builds a one-off validation error.
func Invalid(format string, args ...any) error {
	return Define(ErrValidation, fmt.Sprintf(format, args...))
}

// Categorized reports whether err already belongs to one of the categories.
func Categorized(err error) bool {
	for _, kind := range categories {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Backend converts a storage error into ErrBackendUnavailable. Errors that
// already carry a category pass through untouched.
func Backend(err error) error {
	if err == nil || Categorized(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}
