package reservation

import (
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
)

// Event data carried in the outbox envelope. Money is a fixed two-decimal string and
// dates use the YYYY-MM-DD wire format.

type BookingCreatedData struct {
	PropertyID  int64  `json:"property_id"`
	HostID      int64  `json:"host_id"`
	RenterID    int64  `json:"renter_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Nights      int    `json:"nights"`
	GuestsCount int    `json:"guests_count"`
	TotalPrice  string `json:"total_price"`
}

type BookingConfirmedData struct {
	PropertyID    int64  `json:"property_id"`
	HostID        int64  `json:"host_id"`
	RenterID      int64  `json:"renter_id"`
	PaymentStatus string `json:"payment_status"`
}

type BookingCancelledData struct {
	PropertyID     int64  `json:"property_id"`
	CancelledBy    int64  `json:"cancelled_by"`
	PreviousStatus string `json:"previous_status"`
	Reason         string `json:"reason,omitempty"`
	RefundFraction string `json:"refund_fraction"`
	RefundAmount   string `json:"refund_amount"`
}

type BookingCompletedData struct {
	PropertyID   int64 `json:"property_id"`
	RenterID     int64 `json:"renter_id"`
	PointsEarned int64 `json:"points_earned"`
}

// PaymentRequestData asks the payment collaborator to capture or refund an amount
type PaymentRequestData struct {
	RenterID int64  `json:"renter_id"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason,omitempty"`
}

type PaymentStatusData struct {
	PaymentStatus  string `json:"payment_status"`
	PreviousStatus string `json:"previous_status"`
	BookingStatus  string `json:"booking_status"`
}

const (
	refundReasonCancellation    = "cancellation"
	refundReasonPaidAfterCancel = "paid_after_cancellation"
	captureReasonHostConfirmed  = "host_confirmed"
)

func createdData(b *booking.Booking) BookingCreatedData {
	return BookingCreatedData{
		PropertyID:  b.PropertyID,
		HostID:      b.HostID,
		RenterID:    b.RenterID,
		CheckIn:     b.CheckIn.Format(availability.DateLayout),
		CheckOut:    b.CheckOut.Format(availability.DateLayout),
		Nights:      b.Stay().Nights(),
		GuestsCount: b.GuestsCount,
		TotalPrice:  b.TotalPrice.StringFixed(2),
	}
}
