package shared

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidPaymentStatus = errors.New("invalid payment callback status")
	ErrInvalidActivityType  = errors.New("invalid activity type")
)

// PaymentCallback is the Kafka message the payment collaborator sends after acting on
// a capture or refund request.
type PaymentCallback struct {
	BookingID     uuid.UUID `json:"booking_id"`
	Status        string    `json:"status"` // paid, failed or refunded
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Validate checks the callback carries a booking and a known status
func (c *PaymentCallback) Validate() error {
	if c.BookingID == uuid.Nil {
		return errors.New("payment callback missing booking_id")
	}
	switch c.Status {
	case "paid", "failed", "refunded":
		return nil
	default:
		return ErrInvalidPaymentStatus
	}
}

// ActivityType identifies user activity that affects points or the property catalog
type ActivityType string

const (
	ActivityUserRegistered   ActivityType = "user.registered"
	ActivityReviewPosted     ActivityType = "review.posted"
	ActivityPostCreated      ActivityType = "post.created"
	ActivityPropertyUpserted ActivityType = "property.upserted"
)

// ActivityEvent is consumed from the user activity topic
type ActivityEvent struct {
	Type          ActivityType    `json:"type"`
	AccountID     int64           `json:"account_id"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Property      json.RawMessage `json:"property,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Validate checks required fields per activity type
func (e *ActivityEvent) Validate() error {
	switch e.Type {
	case ActivityUserRegistered:
		if e.AccountID <= 0 {
			return errors.New("activity missing account_id")
		}
	case ActivityReviewPosted, ActivityPostCreated:
		if e.AccountID <= 0 || e.ReferenceID == "" {
			return errors.New("activity missing account_id or reference_id")
		}
	case ActivityPropertyUpserted:
		if len(e.Property) == 0 {
			return errors.New("activity missing property payload")
		}
	default:
		return ErrInvalidActivityType
	}
	return nil
}
