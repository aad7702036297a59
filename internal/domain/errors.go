package domain

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	// ErrPersistence marks a snapshot write that failed after the in-memory
	// state was already updated. Callers treat it as a warning.
	ErrPersistence = errors.New("persistence warning")
)
