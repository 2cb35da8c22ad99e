package handler

import (
	"time"

	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/reservation"
)

// CreateBookingRequest represents a request to book a property. Dates are YYYY-MM-DD.
type CreateBookingRequest struct {
	PropertyID      int64  `json:"property_id" binding:"required,gt=0"`
	CheckIn         string `json:"check_in" binding:"required"`
	CheckOut        string `json:"check_out" binding:"required"`
	GuestsCount     int    `json:"guests_count" binding:"required,gt=0"`
	SpecialRequests string `json:"special_requests,omitempty" binding:"max=1000"`
}

// CancelBookingRequest carries the optional cancellation reason
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PaymentStatusRequest records a payment collaborator outcome
type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=paid failed refunded"`
}

// SpendPointsRequest charges the post cost for a piece of content
type SpendPointsRequest struct {
	ReferenceID string `json:"reference_id" binding:"required"`
}

// AdjustPointsRequest applies a signed manual correction
type AdjustPointsRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	ReferenceID string `json:"reference_id" binding:"required"`
}

// ListBookingsParams filters the caller's bookings
type ListBookingsParams struct {
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	Role   string `form:"role,default=renter" binding:"oneof=renter host"`
	Page   int    `form:"page,default=1" binding:"min=1,max=10000"`
	Size   int    `form:"size,default=10" binding:"min=1,max=100"`
}

// PaginationParams represents pagination parameters for list endpoints. Page is capped so
// (page-1)*per_page always fits an offset.
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1,max=10000"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// AvailabilityParams bounds a calendar query
type AvailabilityParams struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID              string `json:"id"`
	PropertyID      int64  `json:"property_id"`
	HostID          int64  `json:"host_id"`
	RenterID        int64  `json:"renter_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Nights          int    `json:"nights"`
	GuestsCount     int    `json:"guests_count"`
	TotalPrice      string `json:"total_price"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	SpecialRequests string `json:"special_requests,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// CancellationResponse is the cancelled booking with its refund
type CancellationResponse struct {
	BookingResponse
	RefundFraction string `json:"refund_fraction"`
	RefundAmount   string `json:"refund_amount"`
}

// ReviewEligibilityResponse tells the renter whether a review can be posted
type ReviewEligibilityResponse struct {
	BookingID string `json:"booking_id"`
	Eligible  bool   `json:"eligible"`
	Deadline  string `json:"deadline"`
	Reason    string `json:"reason,omitempty"`
}

// OccupiedRangeResponse is one unavailable span of a property calendar
type OccupiedRangeResponse struct {
	BookingID string `json:"booking_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// AvailabilityResponse lists the occupied ranges within the requested window
type AvailabilityResponse struct {
	PropertyID int64                   `json:"property_id"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	Occupied   []OccupiedRangeResponse `json:"occupied"`
}

// BalanceResponse is an account's current point balance
type BalanceResponse struct {
	AccountID int64 `json:"account_id"`
	Balance   int64 `json:"balance"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"reference_id"`
	CreatedAt   string `json:"created_at"`
}

// mapBookingToResponse maps a booking entity to a booking response DTO
func mapBookingToResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		PropertyID:      b.PropertyID,
		HostID:          b.HostID,
		RenterID:        b.RenterID,
		CheckIn:         b.CheckIn.Format(availability.DateLayout),
		CheckOut:        b.CheckOut.Format(availability.DateLayout),
		Nights:          b.Stay().Nights(),
		GuestsCount:     b.GuestsCount,
		TotalPrice:      b.TotalPrice.StringFixed(2),
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func mapCancellationToResponse(result *reservation.CancellationResult) CancellationResponse {
	return CancellationResponse{
		BookingResponse: mapBookingToResponse(result.Booking),
		RefundFraction:  result.Fraction.String(),
		RefundAmount:    result.RefundAmount.StringFixed(2),
	}
}

func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          entry.ID.String(),
		Amount:      entry.Amount,
		Reason:      string(entry.Reason),
		ReferenceID: entry.ReferenceID,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
}
