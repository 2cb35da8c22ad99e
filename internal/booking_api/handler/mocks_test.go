package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/reservation"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func bookingResult(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req reservation.CreateBookingRequest) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, req))
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id, actorID))
}

func (m *MockBookingService) CancelBooking(ctx context.Context, id uuid.UUID, actorID int64, reason string) (*reservation.CancellationResult, error) {
	args := m.Called(ctx, id, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.CancellationResult), args.Error(1)
}

func (m *MockBookingService) CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) DueForCompletion(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBookingService) MarkPaid(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) MarkRefunded(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) GetBooking(ctx context.Context, id uuid.UUID, actorID int64) (*booking.Booking, error) {
	return bookingResult(m.Called(ctx, id, actorID))
}

func (m *MockBookingService) ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*booking.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingService) ReviewEligibility(ctx context.Context, id uuid.UUID, actorID int64) (*reservation.ReviewEligibility, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.ReviewEligibility), args.Error(1)
}

func (m *MockBookingService) Occupied(ctx context.Context, propertyID int64, from, to time.Time) ([]availability.Interval, error) {
	args := m.Called(ctx, propertyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]availability.Interval), args.Error(1)
}

type MockPointsService struct {
	mock.Mock
}

func (m *MockPointsService) GrantRegistrationBonus(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockPointsService) GrantReviewEarn(ctx context.Context, accountID int64, reviewID string) error {
	return m.Called(ctx, accountID, reviewID).Error(0)
}

func (m *MockPointsService) ChargePost(ctx context.Context, accountID int64, postID string) error {
	return m.Called(ctx, accountID, postID).Error(0)
}

func (m *MockPointsService) Adjust(ctx context.Context, accountID, amount int64, referenceID string) error {
	return m.Called(ctx, accountID, amount, referenceID).Error(0)
}

func (m *MockPointsService) Balance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPointsService) Entries(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

var (
	_ reservation.BookingService = (*MockBookingService)(nil)
	_ reservation.PointsService  = (*MockPointsService)(nil)
)
