package shared

import "errors"

// ErrUnavailable is returned when the store keeps aborting a transaction on transient
// conflicts and the bounded retry budget is exhausted.
var ErrUnavailable = errors.New("reservation store temporarily unavailable")

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventType names a lifecycle transition published to subscribers
type EventType string

const (
	EventBookingCreated          EventType = "booking.created"
	EventBookingConfirmed        EventType = "booking.confirmed"
	EventBookingCancelled        EventType = "booking.cancelled"
	EventBookingCompleted        EventType = "booking.completed"
	EventPaymentCaptureRequested EventType = "payment.capture_requested"
	EventPaymentRefundRequested  EventType = "payment.refund_requested"
	EventPaymentPaid             EventType = "payment.paid"
	EventPaymentFailed           EventType = "payment.failed"
	EventPaymentRefunded         EventType = "payment.refunded"
)
