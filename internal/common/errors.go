// Package common defines shared constants and sentinel errors used across
// the textli server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors. Never returned past the service layer.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUnderfunded  = errors.New("underfunded")
	ErrorConflict     = errors.New("conflict")
	ErrorInvalidInput = errors.New("invalid input")

	// ErrorViolatedAssertion is matched by every ViolatedAssertionError.
	ErrorViolatedAssertion = errors.New("violated assertion")

	// Admin token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ViolatedAssertionError reports a broken internal invariant: a corrupted
// ledger ordering or a mutation that touched more rows than it may.
// It is surfaced to callers as an internal error and never in detail.
type ViolatedAssertionError struct {
	Msg string
}

func (e *ViolatedAssertionError) Error() string {
	return fmt.Sprintf("violated assertion: %s", e.Msg)
}

func (e *ViolatedAssertionError) Is(target error) bool {
	return target == ErrorViolatedAssertion
}

// Assertionf builds a ViolatedAssertionError with a formatted message.
func Assertionf(format string, args ...any) error {
	return &ViolatedAssertionError{Msg: fmt.Sprintf(format, args...)}
}
