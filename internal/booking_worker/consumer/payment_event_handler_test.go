package consumer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPaymentEventHandler_HandleMessage(t *testing.T) {
	bookingID := uuid.New()
	key := []byte(bookingID.String())
	callback := func(status string) []byte {
		return []byte(`{"booking_id":"` + bookingID.String() + `","status":"` + status + `","correlation_id":"corr1"}`)
	}
	withCorrelation := mock.MatchedBy(func(ctx context.Context) bool {
		return shared.CorrelationIDFrom(ctx) == "corr1"
	})

	tests := []struct {
		name          string
		value         []byte
		setupMocks    func(svc *MockPaymentService, dlq *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name:  "paid",
			value: callback("paid"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkPaid", withCorrelation, bookingID).Return(&booking.Booking{ID: bookingID}, nil).Once()
			},
		},
		{
			name:  "failed",
			value: callback("failed"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkPaymentFailed", mock.Anything, bookingID).Return(&booking.Booking{ID: bookingID}, nil).Once()
			},
		},
		{
			name:  "refunded",
			value: callback("refunded"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkRefunded", mock.Anything, bookingID).Return(&booking.Booking{ID: bookingID}, nil).Once()
			},
		},
		{
			name:  "malformed message goes to DLQ",
			value: []byte("{not json"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, string(key), []byte("{not json"), mock.AnythingOfType("string")).Return(nil).Once()
			},
		},
		{
			name:  "unknown status goes to DLQ",
			value: callback("pending"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, string(key), callback("pending"), shared.ErrInvalidPaymentStatus.Error()).Return(nil).Once()
			},
		},
		{
			name:  "invalid transition goes to DLQ",
			value: callback("refunded"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkRefunded", mock.Anything, bookingID).Return(nil, booking.ErrInvalidTransition).Once()
				dlq.On("PublishToDLQ", mock.Anything, string(key), mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:  "unknown booking goes to DLQ",
			value: callback("paid"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkPaid", mock.Anything, bookingID).Return(nil, booking.ErrBookingNotFound{ID: bookingID}).Once()
				dlq.On("PublishToDLQ", mock.Anything, string(key), mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:  "transient error is retried",
			value: callback("paid"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				svc.On("MarkPaid", mock.Anything, bookingID).Return(nil, shared.ErrUnavailable).Once()
			},
			expectedError: "temporarily unavailable",
		},
		{
			name:  "DLQ failure keeps message uncommitted",
			value: []byte("{not json"),
			setupMocks: func(svc *MockPaymentService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("dlq down")).Once()
			},
			expectedError: "dlq unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockPaymentService{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(svc, dlq)

			handler := NewPaymentEventHandler(slog.Default(), svc, dlq)
			err := handler.HandleMessage(context.Background(), key, tt.value)

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			svc.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestPaymentEventHandler_WithoutDLQ(t *testing.T) {
	handler := NewPaymentEventHandler(slog.Default(), &MockPaymentService{}, nil)
	err := handler.HandleMessage(context.Background(), []byte("k"), []byte("{not json"))
	assert.ErrorContains(t, err, "unmarshal payment callback")
}
