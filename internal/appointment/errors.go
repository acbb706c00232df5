package appointment

import (
	"errors"
	"fmt"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrOutOfBusinessHours     = errors.New("appointments must be between 06:00:00 and 20:00:00")
	ErrInsufficientSeparation = errors.New("time must be at least 1h30m after the doctor's last appointment")
	ErrSlotAlreadyBooked      = errors.New("this time slot is already booked for the doctor")
	ErrPastDate               = errors.New("appointments cannot be booked in the past")

	// ErrDuplicateSlot is returned by a store when its uniqueness constraint
	// rejects an insert. It is a SlotAlreadyBooked condition.
	ErrDuplicateSlot = fmt.Errorf("%w: duplicate slot", ErrSlotAlreadyBooked)

	// ErrStorageUnavailable marks transient store failures. Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// SeparationError reports a requested time that is too close to the doctor's
// last booking of the day, along with the earliest slot that can be booked.
// When that slot would fall at or after business close, it is 06:00:00 on
// the following day.
type SeparationError struct {
	Date      clock.Date
	Suggested clock.TimeOfDay
}

func (e *SeparationError) Error() string {
	return fmt.Sprintf("%s (earliest available %s %s)", ErrInsufficientSeparation, e.Date, e.Suggested)
}

func (e *SeparationError) Unwrap() error {
	return ErrInsufficientSeparation
}

// validationError wraps a message as ErrValidation.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storageError wraps an unexpected store failure as ErrStorageUnavailable.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
