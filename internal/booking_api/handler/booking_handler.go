package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/reservation"
)

// BookingHandler handles HTTP requests for the booking lifecycle
type BookingHandler struct {
	bookingService reservation.BookingService
	logger         *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(logger *slog.Logger, bookingService reservation.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// Create books a property for the calling renter
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	checkIn, err := availability.ParseDay(req.CheckIn)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "check_in must be a YYYY-MM-DD date")
		return
	}
	checkOut, err := availability.ParseDay(req.CheckOut)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "check_out must be a YYYY-MM-DD date")
		return
	}

	b, err := h.bookingService.CreateBooking(c.Request.Context(), reservation.CreateBookingRequest{
		PropertyID:      req.PropertyID,
		RenterID:        middleware.GetActorID(c),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		GuestsCount:     req.GuestsCount,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapBookingToResponse(b))
}

// GetByID returns a booking the caller takes part in
func (h *BookingHandler) GetByID(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.GetBooking(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// List returns a page of the caller's bookings as renter or as host
func (h *BookingHandler) List(c *gin.Context) {
	var params ListBookingsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Warn("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := booking.Filter{
		Status: booking.Status(params.Status),
		Limit:  params.Size,
		Offset: (params.Page - 1) * params.Size,
	}
	if params.Role == "host" {
		filter.HostID = middleware.GetActorID(c)
	} else {
		filter.RenterID = middleware.GetActorID(c)
	}

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), filter)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, mapBookingToResponse(b))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.Size, int(total))
}

// Confirm accepts a pending booking on behalf of its host
func (h *BookingHandler) Confirm(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.ConfirmBooking(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// Cancel cancels an active booking and reports the refund it earned
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.bookingService.CancelBooking(c.Request.Context(), id, middleware.GetActorID(c), req.Reason)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapCancellationToResponse(result))
}

// UpdatePayment records a payment outcome reported synchronously by the payment collaborator.
// Renters and hosts cannot move the payment axis themselves.
func (h *BookingHandler) UpdatePayment(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	if !middleware.IsPaymentService(c) {
		h.logger.Warn("Payment update rejected for caller without payment role",
			"booking_id", id.String(),
			"actor_id", middleware.GetActorID(c),
			"correlation_id", middleware.GetCorrelationID(c),
		)
		RespondForbidden(c, "Only the payment service can record payment outcomes")
		return
	}

	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var (
		b   *booking.Booking
		err error
	)
	switch booking.PaymentStatus(req.Status) {
	case booking.PaymentPaid:
		b, err = h.bookingService.MarkPaid(ctx, id)
	case booking.PaymentFailed:
		b, err = h.bookingService.MarkPaymentFailed(ctx, id)
	case booking.PaymentRefunded:
		b, err = h.bookingService.MarkRefunded(ctx, id)
	}
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// ReviewEligibility tells the caller whether the stay can still be reviewed
func (h *BookingHandler) ReviewEligibility(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	result, err := h.bookingService.ReviewEligibility(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, ReviewEligibilityResponse{
		BookingID: id.String(),
		Eligible:  result.Eligible,
		Deadline:  result.Deadline.Format(availability.DateLayout),
		Reason:    result.Reason,
	})
}

func (h *BookingHandler) bookingID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid booking ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
