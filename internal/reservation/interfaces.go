package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
)

// BookingService is the booking lifecycle as seen by the HTTP API and the worker
type BookingService interface {
	// CreateBooking validates the request, prices it and reserves the dates.
	// Returns ErrPropertyNotAvailable when an active booking overlaps.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*booking.Booking, error)

	// ConfirmBooking is host-only; confirming twice returns the booking unchanged
	ConfirmBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error)

	// CancelBooking frees the dates and reports the refund owed under the cancellation policy
	CancelBooking(ctx context.Context, id uuid.UUID, actorID int64, reason string) (*CancellationResult, error)

	// CompleteBooking closes a paid stay after check-out and credits the renter's points
	CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// DueForCompletion lists bookings CompleteBooking would accept right now
	DueForCompletion(ctx context.Context, limit int) ([]uuid.UUID, error)

	// Payment collaborator callbacks; they only move the payment axis
	MarkPaid(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	GetBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error)
	ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int64, error)
	ReviewEligibility(ctx context.Context, id uuid.UUID, actorID int64) (*ReviewEligibility, error)
	Occupied(ctx context.Context, propertyID int64, from, to time.Time) ([]availability.Interval, error)
}

// PointsService manages point balances driven by user activity
type PointsService interface {
	GrantRegistrationBonus(ctx context.Context, accountID int64) error
	GrantReviewEarn(ctx context.Context, accountID int64, reviewID string) error

	// ChargePost debits the post cost; returns ErrInsufficientPoints leaving the balance unchanged
	ChargePost(ctx context.Context, accountID int64, postID string) error

	// Adjust applies a signed manual correction
	Adjust(ctx context.Context, accountID, amount int64, referenceID string) error

	Balance(ctx context.Context, accountID int64) (int64, error)

	// Entries returns a page of the account's ledger, newest first, and the total entry count
	Entries(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Entry, int64, error)
}

var (
	_ BookingService = (*Engine)(nil)
	_ PointsService  = (*Points)(nil)
)
