package domain

import "errors"

var (
	ErrPackageNotFound            = errors.New("package not found")
	ErrBookingNotFound            = errors.New("booking not found")
	ErrEntryNotFound              = errors.New("waitlist entry not found")
	ErrInsufficientCapacity       = errors.New("insufficient capacity")
	ErrInvalidRooms               = errors.New("invalid rooms")
	ErrInvalidCapacity            = errors.New("invalid capacity")
	ErrInvalidID                  = errors.New("invalid id")
	ErrAlreadyQueued              = errors.New("already queued")
	ErrRoomsAvailable             = errors.New("rooms still available")
	ErrDuplicateBooking           = errors.New("duplicate booking")
	ErrBookingDeadlinePassed      = errors.New("booking deadline passed")
	ErrCancellationDeadlinePassed = errors.New("cancellation deadline passed")
	ErrBookingLimitReached        = errors.New("future booking limit reached")
	ErrAlreadyPaid                = errors.New("booking already paid")
	ErrDestinationRequired        = errors.New("destination required")
	ErrCountryRequired            = errors.New("country required")
	ErrInvalidDates               = errors.New("invalid package dates")
	ErrInvalidDiscount            = errors.New("invalid discount")

	// ErrConsistencyViolation marks a state that the per-package
	// serialization discipline should have made impossible. Callers log it
	// loudly and never correct it silently.
	ErrConsistencyViolation = errors.New("consistency violation")
)
