package database

import "errors"

var (
	// ErrNotAvailable is returned by the locked insert path when the
	// in-transaction overlap re-check finds a blocking reservation.
	ErrNotAvailable = errors.New("dates are not available")

	// ErrDuplicateCode is returned when a confirmation code is already taken.
	ErrDuplicateCode = errors.New("confirmation code already exists")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
)
