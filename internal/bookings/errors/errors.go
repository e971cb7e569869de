package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusConflict means the stored status no longer matched the
	// expected prior status when a transition was written.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)
