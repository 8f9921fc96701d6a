package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of them,
// so callers branch with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidData          = errors.New("invalid data")
	ErrNotAvailable         = errors.New("not available")
	ErrAircraftNotAvailable = errors.New("aircraft not available")
)

var (
	ErrFlightNotFound        = fmt.Errorf("flight %w", ErrNotFound)
	ErrBookingNotFound       = fmt.Errorf("booking %w", ErrNotFound)
	ErrPaymentNotFound       = fmt.Errorf("payment %w", ErrNotFound)
	ErrAircraftNotFound      = fmt.Errorf("aircraft %w", ErrAircraftNotAvailable)
	ErrFlightNotAvailable    = fmt.Errorf("flight is not available for booking: %w", ErrNotAvailable)
	ErrFlightNotModifiable   = fmt.Errorf("flight cannot be modified: %w", ErrNotAvailable)
	ErrBookingNotCancellable = fmt.Errorf("booking cannot be cancelled: %w", ErrNotAvailable)
	ErrInvalidTransition     = fmt.Errorf("invalid status transition: %w", ErrNotAvailable)
	ErrBookingClosed         = fmt.Errorf("booking is closed for changes: %w", ErrNotAvailable)
	ErrOutstandingBalance    = fmt.Errorf("booking has an outstanding balance: %w", ErrNotAvailable)
)

// InvalidDataError reports why input was rejected.
func InvalidDataError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidData)
}
