package shared

import "errors"

var (
	// ErrNotFound indicates resource not found. Soft-deleted rows surface
	// exactly the same way as rows that never existed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate indicates a uniqueness conflict among non-deleted rows.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
)
