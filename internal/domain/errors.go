package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports user input rejected before any store call.
// It is recovered locally and surfaced as an inline message.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// AuthError reports a mutation attempted without a resolved identity.
// The synchronizer surfaces it inline; only the page-level guard
// redirects to sign-in.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// StoreError wraps a fetch/insert/delete failure from the backing store.
// The store's message is surfaced verbatim for inserts; delete failures
// silently trigger a corrective re-fetch instead.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
