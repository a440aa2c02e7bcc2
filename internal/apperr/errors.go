package apperr

import "errors"

var (
	// ErrValidation marks malformed user or model input (bad dates, missing
	// arguments). Recoverable, reported as text, no state change.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown reminder id, contact id or
	// disambiguation token.
	ErrNotFound = errors.New("not found")

	// ErrExternal marks a failed provider, model or transport call.
	ErrExternal = errors.New("external service error")
)
