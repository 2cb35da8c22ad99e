// Package consumer turns messages from collaborator topics into engine operations.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/platform/messaging/producers"
)

// PaymentService is the payment axis of the reservation engine
type PaymentService interface {
	MarkPaid(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
}

// PaymentEventHandler applies payment collaborator callbacks
type PaymentEventHandler struct {
	payments PaymentService
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewPaymentEventHandler(
	logger *slog.Logger,
	payments PaymentService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		payments: payments,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one callback. Malformed callbacks and callbacks the booking can
// never accept go to the DLQ; anything else is returned so the message is retried.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var callback shared.PaymentCallback
	if err := json.Unmarshal(value, &callback); err != nil {
		h.logger.Error("Failed to unmarshal payment callback", "error", err, "message_key", string(key))
		return deadLetter(ctx, h.logger, h.producer, key, value, fmt.Errorf("unmarshal payment callback: %w", err))
	}
	if err := callback.Validate(); err != nil {
		h.logger.Error("Rejected invalid payment callback", "error", err, "message_key", string(key))
		return deadLetter(ctx, h.logger, h.producer, key, value, err)
	}

	ctx = shared.WithCorrelationID(ctx, callback.CorrelationID)
	logger := h.logger
	if callback.CorrelationID != "" {
		logger = h.logger.With("correlation_id", callback.CorrelationID)
	}

	var err error
	switch callback.Status {
	case "paid":
		_, err = h.payments.MarkPaid(ctx, callback.BookingID)
	case "failed":
		_, err = h.payments.MarkPaymentFailed(ctx, callback.BookingID)
	case "refunded":
		_, err = h.payments.MarkRefunded(ctx, callback.BookingID)
	}

	switch {
	case err == nil:
		logger.Info("Applied payment callback", "booking_id", callback.BookingID.String(), "status", callback.Status)
		return nil
	case errors.Is(err, booking.ErrBookingNotFound{}), errors.Is(err, booking.ErrInvalidTransition):
		logger.Warn("Payment callback cannot be applied", "booking_id", callback.BookingID.String(), "status", callback.Status, "error", err)
		return deadLetter(ctx, h.logger, h.producer, key, value, err)
	default:
		logger.Error("Failed to apply payment callback", "booking_id", callback.BookingID.String(), "error", err)
		return fmt.Errorf("payment callback for booking %s failed: %w", callback.BookingID, err)
	}
}
