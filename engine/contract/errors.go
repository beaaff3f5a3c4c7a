package contract

import "errors"

var (
	// ErrSlotConflict is the canonical 409-equivalent from the calendar
	// backend: the requested window collides with an existing booking.
	ErrSlotConflict = errors.New("calendar slot conflict")

	// ErrGatewayUnavailable covers transport failures, 5xx responses and
	// timeouts. The turn ends with a retryable message; state is untouched.
	ErrGatewayUnavailable = errors.New("calendar gateway unavailable")

	ErrValidation = errors.New("validation failed")
)
