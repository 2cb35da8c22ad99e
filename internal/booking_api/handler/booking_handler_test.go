package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/reservation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testActor = "11"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newBookingRouter(h *BookingHandler) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Actor())
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.List)
	router.GET("/bookings/:id", h.GetByID)
	router.PUT("/bookings/:id/confirm", h.Confirm)
	router.PUT("/bookings/:id/cancel", h.Cancel)
	router.PUT("/bookings/:id/payment", h.UpdatePayment)
	router.GET("/bookings/:id/review-eligibility", h.ReviewEligibility)
	return router
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return doRequestAs(router, method, path, "", body)
}

// doRequestAs sends the request as testActor carrying the given X-User-Role
func doRequestAs(router http.Handler, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorIDHeader, testActor)
	if role != "" {
		req.Header.Set(middleware.ActorRoleHeader, role)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	errorField, ok := decodeEnvelope(t, rr)["error"].(map[string]interface{})
	require.True(t, ok, "'error' field should be a map")
	return errorField["code"].(string)
}

func sampleBooking() *booking.Booking {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &booking.Booking{
		ID:            uuid.New(),
		PropertyID:    42,
		HostID:        7,
		RenterID:      11,
		CheckIn:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		GuestsCount:   2,
		TotalPrice:    decimal.RequireFromString("300"),
		Status:        booking.StatusPending,
		PaymentStatus: booking.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestBookingHandler_Create(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validBody := CreateBookingRequest{PropertyID: 42, CheckIn: "2024-02-01", CheckOut: "2024-02-05", GuestsCount: 2}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockBookingService)
		b := sampleBooking()
		svc.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req reservation.CreateBookingRequest) bool {
			return req.PropertyID == 42 && req.RenterID == 11 && req.GuestsCount == 2 &&
				req.CheckIn.Equal(b.CheckIn) && req.CheckOut.Equal(b.CheckOut)
		})).Return(b, nil).Once()

		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodPost, "/bookings", validBody)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
		assert.Equal(t, b.ID.String(), data["id"])
		assert.Equal(t, "300.00", data["total_price"])
		assert.Equal(t, "pending", data["status"])
		assert.Equal(t, "unpaid", data["payment_status"])
		assert.Equal(t, float64(4), data["nights"])
		assert.Equal(t, "2024-02-01", data["check_in"])
		svc.AssertExpectations(t)
	})

	t.Run("MalformedDate", func(t *testing.T) {
		svc := new(MockBookingService)
		body := validBody
		body.CheckIn = "01/02/2024"

		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodPost, "/bookings", body)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rr))
		svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := new(MockBookingService)
		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodPost, "/bookings", map[string]interface{}{"property_id": 42})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "BAD_REQUEST", errorCode(t, rr))
	})

	errorCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"Validation", booking.ValidationError{Reason: "too many guests"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Conflict", booking.ErrPropertyNotAvailable, http.StatusConflict, "PROPERTY_NOT_AVAILABLE"},
		{"UnknownProperty", fmt.Errorf("lookup: %w", property.ErrPropertyNotFound{ID: 42}), http.StatusNotFound, "NOT_FOUND"},
		{"Unavailable", shared.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockBookingService)
			svc.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodPost, "/bookings", validBody)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedCode, errorCode(t, rr))
			assert.NotEmpty(t, decodeEnvelope(t, rr)["correlation_id"])
		})
	}
}

func TestBookingHandler_Transitions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := sampleBooking()

	tests := []struct {
		name           string
		method         string
		path           string
		role           string
		body           interface{}
		setupMocks     func(svc *MockBookingService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "ConfirmSuccess",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/confirm",
			setupMocks: func(svc *MockBookingService) {
				confirmed := *b
				confirmed.Status = booking.StatusConfirmed
				svc.On("ConfirmBooking", mock.Anything, b.ID, int64(11)).Return(&confirmed, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "ConfirmForbidden",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/confirm",
			setupMocks: func(svc *MockBookingService) {
				svc.On("ConfirmBooking", mock.Anything, b.ID, int64(11)).Return(nil, booking.ErrForbidden).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:   "ConfirmInvalidTransition",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/confirm",
			setupMocks: func(svc *MockBookingService) {
				svc.On("ConfirmBooking", mock.Anything, b.ID, int64(11)).Return(nil, booking.ErrInvalidTransition).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_TRANSITION",
		},
		{
			name:   "CancelWithoutBody",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/cancel",
			setupMocks: func(svc *MockBookingService) {
				cancelled := *b
				cancelled.Status = booking.StatusCancelled
				svc.On("CancelBooking", mock.Anything, b.ID, int64(11), "").Return(&reservation.CancellationResult{
					Booking:      &cancelled,
					Fraction:     decimal.NewFromInt(1),
					RefundAmount: decimal.RequireFromString("300"),
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "CancelNotCancellable",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/cancel",
			body:   CancelBookingRequest{Reason: "plans changed"},
			setupMocks: func(svc *MockBookingService) {
				svc.On("CancelBooking", mock.Anything, b.ID, int64(11), "plans changed").Return(nil, booking.ErrBookingCannotCancel).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "BOOKING_CANNOT_CANCEL",
		},
		{
			name:   "PaymentPaid",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/payment",
			role:   middleware.RolePaymentService,
			body:   PaymentStatusRequest{Status: "paid"},
			setupMocks: func(svc *MockBookingService) {
				svc.On("MarkPaid", mock.Anything, b.ID).Return(b, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "PaymentFailedByAdmin",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/payment",
			role:   middleware.RoleAdmin,
			body:   PaymentStatusRequest{Status: "failed"},
			setupMocks: func(svc *MockBookingService) {
				svc.On("MarkPaymentFailed", mock.Anything, b.ID).Return(b, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "PaymentRefunded",
			method: http.MethodPut,
			path:   "/bookings/" + b.ID.String() + "/payment",
			role:   middleware.RolePaymentService,
			body:   PaymentStatusRequest{Status: "refunded"},
			setupMocks: func(svc *MockBookingService) {
				svc.On("MarkRefunded", mock.Anything, b.ID).Return(nil, booking.ErrInvalidTransition).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_TRANSITION",
		},
		{
			name:           "PaymentRejectedWithoutRole",
			method:         http.MethodPut,
			path:           "/bookings/" + b.ID.String() + "/payment",
			body:           PaymentStatusRequest{Status: "paid"},
			setupMocks:     func(svc *MockBookingService) {},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:           "PaymentRejectedForUnknownRole",
			method:         http.MethodPut,
			path:           "/bookings/" + b.ID.String() + "/payment",
			role:           "renter",
			body:           PaymentStatusRequest{Status: "refunded"},
			setupMocks:     func(svc *MockBookingService) {},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:           "PaymentUnknownStatus",
			method:         http.MethodPut,
			path:           "/bookings/" + b.ID.String() + "/payment",
			role:           middleware.RolePaymentService,
			body:           PaymentStatusRequest{Status: "pending"},
			setupMocks:     func(svc *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:   "GetNotFound",
			method: http.MethodGet,
			path:   "/bookings/" + b.ID.String(),
			setupMocks: func(svc *MockBookingService) {
				svc.On("GetBooking", mock.Anything, b.ID, int64(11)).Return(nil, booking.ErrBookingNotFound{ID: b.ID}).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "InvalidID",
			method:         http.MethodGet,
			path:           "/bookings/not-a-uuid",
			setupMocks:     func(svc *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBookingService)
			tt.setupMocks(svc)

			rr := doRequestAs(newBookingRouter(NewBookingHandler(testLogger(), svc)), tt.method, tt.path, tt.role, tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, rr))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_CancelReportsRefund(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := sampleBooking()
	b.Status = booking.StatusCancelled

	svc := new(MockBookingService)
	svc.On("CancelBooking", mock.Anything, b.ID, int64(11), "sick").Return(&reservation.CancellationResult{
		Booking:      b,
		Fraction:     decimal.RequireFromString("0.5"),
		RefundAmount: decimal.RequireFromString("150"),
	}, nil).Once()

	rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodPut, "/bookings/"+b.ID.String()+"/cancel", CancelBookingRequest{Reason: "sick"})

	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "cancelled", data["status"])
	assert.Equal(t, "0.5", data["refund_fraction"])
	assert.Equal(t, "150.00", data["refund_amount"])
}

func TestBookingHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("HostRoleFiltersByHost", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("ListBookings", mock.Anything, booking.Filter{
			HostID: 11,
			Status: booking.StatusConfirmed,
			Limit:  5,
			Offset: 5,
		}).Return([]*booking.Booking{sampleBooking()}, int64(6), nil).Once()

		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings?role=host&status=confirmed&page=2&size=5", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		envelope := decodeEnvelope(t, rr)
		meta := envelope["meta"].(map[string]interface{})
		assert.Equal(t, float64(2), meta["page"])
		assert.Equal(t, float64(2), meta["total_pages"])
		assert.Equal(t, float64(6), meta["total_items"])
		assert.Len(t, envelope["data"], 1)
		svc.AssertExpectations(t)
	})

	t.Run("DefaultsToRenter", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("ListBookings", mock.Anything, booking.Filter{RenterID: 11, Limit: 10}).
			Return([]*booking.Booking{}, int64(0), nil).Once()

		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []interface{}{}, decodeEnvelope(t, rr)["data"])
		svc.AssertExpectations(t)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		svc := new(MockBookingService)
		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings?status=archived", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("RejectsPageBeyondLimit", func(t *testing.T) {
		svc := new(MockBookingService)
		for _, page := range []string{"10001", "92233720368547760"} {
			rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings?page="+page+"&size=100", nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code, "page=%s", page)
			assert.Equal(t, "BAD_REQUEST", errorCode(t, rr))
		}
		svc.AssertNotCalled(t, "ListBookings", mock.Anything, mock.Anything)
	})

	t.Run("LastAllowedPage", func(t *testing.T) {
		svc := new(MockBookingService)
		svc.On("ListBookings", mock.Anything, booking.Filter{RenterID: 11, Limit: 100, Offset: 999900}).
			Return([]*booking.Booking{}, int64(0), nil).Once()

		rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings?page=10000&size=100", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})
}

func TestBookingHandler_ReviewEligibility(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	svc := new(MockBookingService)
	svc.On("ReviewEligibility", mock.Anything, id, int64(11)).Return(&reservation.ReviewEligibility{
		Eligible: true,
		Deadline: time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC),
	}, nil).Once()

	rr := doRequest(newBookingRouter(NewBookingHandler(testLogger(), svc)), http.MethodGet, "/bookings/"+id.String()+"/review-eligibility", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, true, data["eligible"])
	assert.Equal(t, "2024-02-19", data["deadline"])
	assert.Equal(t, id.String(), data["booking_id"])
}
