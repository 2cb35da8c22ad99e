package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items"`
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondForbidden sends a 403 Forbidden response with an error
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondDomainError maps reservation and points errors onto HTTP statuses.
// Anything unrecognised is logged and reported as a 500.
func RespondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var validation booking.ValidationError
	switch {
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", validation.Reason)
	case errors.Is(err, ledger.ErrInvalidAmount):
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, booking.ErrPropertyNotAvailable):
		RespondWithError(c, http.StatusConflict, "PROPERTY_NOT_AVAILABLE", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		RespondWithError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, booking.ErrBookingCannotCancel):
		RespondWithError(c, http.StatusConflict, "BOOKING_CANNOT_CANCEL", err.Error())
	case errors.Is(err, ledger.ErrInsufficientPoints):
		RespondWithError(c, http.StatusConflict, "INSUFFICIENT_POINTS", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound{}):
		RespondNotFound(c, "Booking not found")
	case errors.Is(err, property.ErrPropertyNotFound{}):
		RespondNotFound(c, "Property not found")
	case errors.Is(err, booking.ErrForbidden):
		RespondForbidden(c, err.Error())
	case errors.Is(err, shared.ErrUnavailable):
		logger.Warn("Reservation store unavailable", "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondWithError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable, retry later")
	default:
		logger.Error("Unhandled request error", "error", err, "path", c.FullPath(), "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
	}
}
