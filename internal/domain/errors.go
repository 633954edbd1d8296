package domain

import "errors"

var (
	// ErrNotFound means the referenced trip or booking does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSoldOut means the trip does not have enough available seats.
	// This is a normal business outcome, not a defect.
	ErrSoldOut = errors.New("not enough seats available")

	// ErrInvalidRequest covers malformed input: non-positive seat count,
	// a trip that is not bookable, a departure already in the past.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidTransition means the booking is not in a state the
	// requested transition can start from.
	ErrInvalidTransition = errors.New("invalid booking state transition")
)
