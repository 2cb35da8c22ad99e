// Package booking holds the reservation aggregate and its two independent state axes:
// the lifecycle status and the payment status.
package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a booking
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsActive reports whether a booking in this status occupies calendar space
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// PaymentStatus tracks what the payment collaborator reported
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// allowed payment moves; the payment axis never touches Status
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid: {PaymentPaid, PaymentFailed},
	PaymentFailed: {PaymentPaid},
	PaymentPaid:   {PaymentRefunded},
}

// Booking is a reservation of a property for a half-open range of nights.
// TotalPrice is fixed at creation; only Status, PaymentStatus and UpdatedAt change afterwards.
type Booking struct {
	ID              uuid.UUID       `json:"id"`
	PropertyID      int64           `json:"property_id"`
	HostID          int64           `json:"host_id"`
	RenterID        int64           `json:"renter_id"`
	CheckIn         time.Time       `json:"check_in"`
	CheckOut        time.Time       `json:"check_out"`
	GuestsCount     int             `json:"guests_count"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	SpecialRequests string          `json:"special_requests,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewBooking creates a pending, unpaid booking for the given stay
func NewBooking(propertyID, hostID, renterID int64, stay availability.DateRange, guests int, total decimal.Decimal, specialRequests string, now time.Time) *Booking {
	return &Booking{
		ID:              uuid.New(),
		PropertyID:      propertyID,
		HostID:          hostID,
		RenterID:        renterID,
		CheckIn:         stay.Start,
		CheckOut:        stay.End,
		GuestsCount:     guests,
		TotalPrice:      total,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		SpecialRequests: specialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Stay returns the occupied range of the booking
func (b *Booking) Stay() availability.DateRange {
	return availability.DateRange{Start: b.CheckIn, End: b.CheckOut}
}

// IsParticipant reports whether the actor is the renter or the host
func (b *Booking) IsParticipant(actorID int64) bool {
	return actorID == b.RenterID || actorID == b.HostID
}

// Confirm moves a pending booking to confirmed. Confirming an already confirmed
// booking is a no-op and reports changed=false.
func (b *Booking) Confirm(now time.Time) (changed bool, err error) {
	switch b.Status {
	case StatusConfirmed:
		return false, nil
	case StatusPending:
		b.Status = StatusConfirmed
		b.UpdatedAt = now
		return true, nil
	default:
		return false, transitionError(b.Status, StatusConfirmed)
	}
}

// Cancel moves an active booking to cancelled
func (b *Booking) Cancel(now time.Time) error {
	if !b.Status.IsActive() {
		return fmt.Errorf("%w: booking is %s", ErrBookingCannotCancel, b.Status)
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now
	return nil
}

// Complete moves a confirmed and paid booking whose stay has ended to completed.
// Completing an already completed booking reports changed=false.
func (b *Booking) Complete(now time.Time) (changed bool, err error) {
	if b.Status == StatusCompleted {
		return false, nil
	}
	if b.Status != StatusConfirmed {
		return false, transitionError(b.Status, StatusCompleted)
	}
	if b.PaymentStatus != PaymentPaid {
		return false, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, b.PaymentStatus)
	}
	if now.Before(b.CheckOut) {
		return false, fmt.Errorf("%w: stay ends %s", ErrInvalidTransition, b.CheckOut.Format(availability.DateLayout))
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return true, nil
}

// SetPayment moves the payment axis to target. Repeating the current status is a
// no-op and reports changed=false.
func (b *Booking) SetPayment(target PaymentStatus, now time.Time) (changed bool, err error) {
	if b.PaymentStatus == target {
		return false, nil
	}
	for _, next := range paymentTransitions[b.PaymentStatus] {
		if next == target {
			b.PaymentStatus = target
			b.UpdatedAt = now
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, b.PaymentStatus, target)
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
