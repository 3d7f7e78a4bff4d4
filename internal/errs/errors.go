// Package errs defines the error kinds surfaced by the workflow engine.
//
// Callers classify failures with errors.Is; everything else is an internal
// error. Forbidden and InvalidTransition are terminal for the call, Conflict
// is retryable after re-fetching state.
package errs

import "errors"

var (
	// ErrForbidden is returned when the action is not in the actor's
	// permitted set for the current state.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when the action is structurally
	// undefined for the entity's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound is returned when an entity id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed payloads.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a concurrent modification is detected
	// via version mismatch. The caller may re-fetch and retry.
	ErrConflict = errors.New("concurrent modification conflict")
)
