package models

import "errors"

// Action failure taxonomy. Guard clauses reject with ErrPermissionDenied or
// ErrInvalidInput before any write happens, so rejected actions leave no
// partial side effects. ErrInconsistent marks a half-applied compound write;
// it is never shown to an end user because the next convergent read repairs
// it.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInconsistent     = errors.New("inconsistent state")
)
