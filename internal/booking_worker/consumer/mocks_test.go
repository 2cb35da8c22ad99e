package consumer

import (
	"context"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/stretchr/testify/mock"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) result(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockPaymentService) MarkPaid(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockPaymentService) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockPaymentService) MarkRefunded(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return m.result(m.Called(ctx, id))
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

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByID(ctx context.Context, id int64) (*property.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*property.Property), args.Error(1)
}

func (m *MockCatalog) Upsert(ctx context.Context, p *property.Property) error {
	return m.Called(ctx, p).Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
