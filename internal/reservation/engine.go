// Package reservation implements the booking lifecycle and the points ledger service on
// top of a transactional store. Every mutation runs in one store transaction that also
// records the resulting events in the outbox.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/domain/store"
	"github.com/kerya-reservation-engine/internal/logger"
	"github.com/kerya-reservation-engine/internal/policy"
	"github.com/shopspring/decimal"
)

// maxCalendarWindow bounds availability queries
const maxCalendarWindow = 366

// CreateBookingRequest carries a renter's booking request
type CreateBookingRequest struct {
	PropertyID      int64
	RenterID        int64
	CheckIn         time.Time
	CheckOut        time.Time
	GuestsCount     int
	SpecialRequests string
}

// CancellationResult is the cancelled booking and the refund it earned
type CancellationResult struct {
	Booking      *booking.Booking
	Fraction     decimal.Decimal
	RefundAmount decimal.Decimal
}

// ReviewEligibility tells a renter whether the review window of a stay is open
type ReviewEligibility struct {
	Eligible bool
	Deadline time.Time
	Reason   string
}

// Option customises an Engine or Points service
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func buildOptions(opts []Option) options {
	o := options{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine coordinates the availability index, bookings, the ledger and the outbox
type Engine struct {
	store      store.Store
	properties property.Provider
	rules      policy.Rules
	clock      func() time.Time
	txTimeout  time.Duration
	logger     *slog.Logger
}

func NewEngine(logger *slog.Logger, st store.Store, properties property.Provider, rules policy.Rules, txTimeout time.Duration, opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{
		store:      st,
		properties: properties,
		rules:      rules,
		clock:      o.clock,
		txTimeout:  txTimeout,
		logger:     logger,
	}
}

func (e *Engine) CreateBooking(ctx context.Context, req CreateBookingRequest) (*booking.Booking, error) {
	log := logger.WithCorrelation(e.logger, shared.CorrelationIDFrom(ctx))
	now := e.clock()

	if err := policy.ValidateWindow(req.CheckIn, req.CheckOut, now, e.rules.Window); err != nil {
		return nil, err
	}
	stay, err := availability.NewDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, booking.ValidationError{Reason: err.Error()}
	}

	prop, err := e.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateGuests(req.GuestsCount, prop.MaxGuests); err != nil {
		return nil, err
	}

	total := policy.TotalPrice(prop.PricePerNight, stay.Nights())
	b := booking.NewBooking(prop.ID, prop.HostID, req.RenterID, stay, req.GuestsCount, total, req.SpecialRequests, now)

	err = runTx(ctx, e.store, e.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		if err := tx.Availability().Reserve(ctx, b.PropertyID, b.ID, stay); err != nil {
			if errors.Is(err, availability.ErrConflict) {
				return fmt.Errorf("%w: %s", booking.ErrPropertyNotAvailable, stay)
			}
			return err
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		return emit(ctx, tx, shared.EventBookingCreated, b.ID, createdData(b), now)
	})
	if err != nil {
		if !errors.Is(err, booking.ErrPropertyNotAvailable) {
			log.Error("Failed to create booking", "property_id", req.PropertyID, "error", err)
		}
		return nil, err
	}

	log.Info("Booking created",
		"booking_id", b.ID.String(),
		"property_id", b.PropertyID,
		"stay", stay.String(),
		"total_price", b.TotalPrice.StringFixed(2),
	)
	return b, nil
}

func (e *Engine) ConfirmBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error) {
	now := e.clock()
	var result *booking.Booking
	var changed bool

	err := runTx(ctx, e.store, e.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		b, err := tx.Bookings().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.HostID != actorID {
			return fmt.Errorf("%w: only the host can confirm", booking.ErrForbidden)
		}

		changed, err = b.Confirm(now)
		if err != nil {
			return err
		}
		result = b
		if !changed {
			return nil
		}

		if err := tx.Bookings().UpdateState(ctx, b); err != nil {
			return err
		}
		data := BookingConfirmedData{PropertyID: b.PropertyID, HostID: b.HostID, RenterID: b.RenterID, PaymentStatus: string(b.PaymentStatus)}
		if err := emit(ctx, tx, shared.EventBookingConfirmed, b.ID, data, now); err != nil {
			return err
		}
		if b.PaymentStatus == booking.PaymentUnpaid {
			capture := PaymentRequestData{RenterID: b.RenterID, Amount: b.TotalPrice.StringFixed(2), Reason: captureReasonHostConfirmed}
			return emit(ctx, tx, shared.EventPaymentCaptureRequested, b.ID, capture, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.WithCorrelation(e.logger, shared.CorrelationIDFrom(ctx)).Info("Booking confirmed", "booking_id", id.String())
	}
	return result, nil
}

func (e *Engine) CancelBooking(ctx context.Context, id uuid.UUID, actorID int64, reason string) (*CancellationResult, error) {
	now := e.clock()
	var result *CancellationResult

	err := runTx(ctx, e.store, e.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		b, err := tx.Bookings().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.IsParticipant(actorID) {
			return fmt.Errorf("%w: only the renter or host can cancel", booking.ErrForbidden)
		}

		previous := b.Status
		if err := b.Cancel(now); err != nil {
			return err
		}
		if err := tx.Availability().Release(ctx, b.PropertyID, b.ID); err != nil {
			return err
		}
		if err := tx.Bookings().UpdateState(ctx, b); err != nil {
			return err
		}

		fraction := policy.RefundFraction(b.CheckIn, now, e.rules.Cancellation)
		refund := decimal.Zero
		if b.PaymentStatus == booking.PaymentPaid {
			refund = policy.RefundAmount(b.TotalPrice, fraction)
		}
		if refund.IsPositive() {
			request := PaymentRequestData{RenterID: b.RenterID, Amount: refund.StringFixed(2), Reason: refundReasonCancellation}
			if err := emit(ctx, tx, shared.EventPaymentRefundRequested, b.ID, request, now); err != nil {
				return err
			}
		}

		data := BookingCancelledData{
			PropertyID:     b.PropertyID,
			CancelledBy:    actorID,
			PreviousStatus: string(previous),
			Reason:         reason,
			RefundFraction: fraction.String(),
			RefundAmount:   refund.StringFixed(2),
		}
		if err := emit(ctx, tx, shared.EventBookingCancelled, b.ID, data, now); err != nil {
			return err
		}

		result = &CancellationResult{Booking: b, Fraction: fraction, RefundAmount: refund}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithCorrelation(e.logger, shared.CorrelationIDFrom(ctx)).Info("Booking cancelled",
		"booking_id", id.String(),
		"refund_fraction", result.Fraction.String(),
		"refund_amount", result.RefundAmount.StringFixed(2),
	)
	return result, nil
}

func (e *Engine) CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	now := e.clock()
	var result *booking.Booking
	var earned int64

	err := runTx(ctx, e.store, e.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		b, err := tx.Bookings().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		changed, err := b.Complete(now)
		if err != nil {
			return err
		}
		result = b
		earned = 0
		if !changed {
			return nil
		}

		if err := tx.Bookings().UpdateState(ctx, b); err != nil {
			return err
		}

		points := policy.BookingEarnPoints(b.TotalPrice, e.rules.Points.BookingEarn)
		if points > 0 {
			entry, err := ledger.NewCredit(b.RenterID, points, ledger.ReasonBookingEarn, b.ID.String(), now)
			if err != nil {
				return err
			}
			if err := tx.Ledger().Append(ctx, entry); err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
				return err
			}
			earned = points
		}

		data := BookingCompletedData{PropertyID: b.PropertyID, RenterID: b.RenterID, PointsEarned: earned}
		return emit(ctx, tx, shared.EventBookingCompleted, b.ID, data, now)
	})
	if err != nil {
		return nil, err
	}

	if earned > 0 {
		logger.WithCorrelation(e.logger, shared.CorrelationIDFrom(ctx)).Info("Booking completed",
			"booking_id", id.String(),
			"points_earned", earned,
		)
	}
	return result, nil
}

func (e *Engine) DueForCompletion(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return e.store.Bookings().ListDueForCompletion(ctx, e.clock(), limit)
}

// CompleteDue completes every due booking in turn and reports how many changed.
// Failures are collected and do not stop the sweep.
func (e *Engine) CompleteDue(ctx context.Context, limit int) (int, error) {
	ids, err := e.DueForCompletion(ctx, limit)
	if err != nil {
		return 0, err
	}

	var errs []error
	completed := 0
	for _, id := range ids {
		if _, err := e.CompleteBooking(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("booking %s: %w", id, err))
			continue
		}
		completed++
	}
	return completed, errors.Join(errs...)
}

func (e *Engine) MarkPaid(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return e.setPayment(ctx, id, booking.PaymentPaid, shared.EventPaymentPaid)
}

func (e *Engine) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return e.setPayment(ctx, id, booking.PaymentFailed, shared.EventPaymentFailed)
}

func (e *Engine) MarkRefunded(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return e.setPayment(ctx, id, booking.PaymentRefunded, shared.EventPaymentRefunded)
}

// setPayment moves only the payment axis. Money arriving for a booking that was
// cancelled in the meantime is sent straight back.
func (e *Engine) setPayment(ctx context.Context, id uuid.UUID, target booking.PaymentStatus, eventType shared.EventType) (*booking.Booking, error) {
	now := e.clock()
	var result *booking.Booking
	var changed bool

	err := runTx(ctx, e.store, e.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		b, err := tx.Bookings().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}

		previous := b.PaymentStatus
		changed, err = b.SetPayment(target, now)
		if err != nil {
			return err
		}
		result = b
		if !changed {
			return nil
		}

		if err := tx.Bookings().UpdateState(ctx, b); err != nil {
			return err
		}
		data := PaymentStatusData{PaymentStatus: string(target), PreviousStatus: string(previous), BookingStatus: string(b.Status)}
		if err := emit(ctx, tx, eventType, b.ID, data, now); err != nil {
			return err
		}

		if target == booking.PaymentPaid && b.Status == booking.StatusCancelled {
			refund := PaymentRequestData{RenterID: b.RenterID, Amount: b.TotalPrice.StringFixed(2), Reason: refundReasonPaidAfterCancel}
			return emit(ctx, tx, shared.EventPaymentRefundRequested, b.ID, refund, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.WithCorrelation(e.logger, shared.CorrelationIDFrom(ctx)).Info("Payment status updated",
			"booking_id", id.String(),
			"payment_status", string(target),
		)
	}
	return result, nil
}

// GetBooking returns the booking when the actor is its renter or host
func (e *Engine) GetBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error) {
	b, err := e.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(actorID) {
		return nil, booking.ErrForbidden
	}
	return b, nil
}

func (e *Engine) ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int64, error) {
	bookings, err := e.store.Bookings().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.store.Bookings().Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (e *Engine) ReviewEligibility(ctx context.Context, id uuid.UUID, actorID int64) (*ReviewEligibility, error) {
	b, err := e.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(actorID) {
		return nil, booking.ErrForbidden
	}

	result := &ReviewEligibility{Deadline: policy.ReviewDeadline(b.CheckOut, e.rules.ReviewDays)}
	switch {
	case actorID != b.RenterID:
		result.Reason = "only the renter can review a stay"
	case b.Status != booking.StatusCompleted:
		result.Reason = "booking is " + string(b.Status)
	case !policy.CanReview(b.CheckOut, e.clock(), e.rules.ReviewDays):
		result.Reason = "review window has closed"
	default:
		result.Eligible = true
	}
	return result, nil
}

func (e *Engine) Occupied(ctx context.Context, propertyID int64, from, to time.Time) ([]availability.Interval, error) {
	window, err := availability.NewDateRange(from, to)
	if err != nil {
		return nil, booking.ValidationError{Reason: "to must be after from"}
	}
	if window.Nights() > maxCalendarWindow {
		return nil, booking.ValidationError{Reason: fmt.Sprintf("calendar window is limited to %d days", maxCalendarWindow)}
	}
	return e.store.Availability().Occupied(ctx, propertyID, window)
}

// runTx detaches the transaction from caller cancellation and bounds it by timeout, so an
// abandoned request still commits or rolls back as a whole.
func runTx(ctx context.Context, st store.Store, timeout time.Duration, fn func(ctx context.Context, tx store.Repositories) error) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return st.WithinTx(txCtx, fn)
}

func emit(ctx context.Context, tx store.Repositories, eventType shared.EventType, bookingID uuid.UUID, data interface{}, now time.Time) error {
	event, err := outbox.NewEvent(eventType, bookingID, shared.CorrelationIDFrom(ctx), data, now)
	if err != nil {
		return err
	}
	msg, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return tx.Outbox().Create(ctx, msg)
}
