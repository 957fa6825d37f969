package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrLockHeld = errors.New("slot lock already held")

	ErrStaleStatus = errors.New("reservation status changed concurrently")
)
