package booking

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPropertyNotAvailable = errors.New("property is not available for the requested dates")
	ErrInvalidTransition    = errors.New("invalid booking state transition")
	ErrBookingCannotCancel  = errors.New("booking cannot be cancelled")
	ErrForbidden            = errors.New("actor is not allowed to act on this booking")
)

// ValidationError is a user-correctable rejection of a booking request
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// Is matches any ValidationError regardless of reason
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	return ok
}

// ErrBookingNotFound indicates a missing booking
type ErrBookingNotFound struct {
	ID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.ID.String()
}

// Is implements the errors.Is interface; a zero ID target matches any missing booking
func (e ErrBookingNotFound) Is(target error) bool {
	t, ok := target.(ErrBookingNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
