package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/reservation"
)

// PropertyHandler serves the occupancy calendar of a property
type PropertyHandler struct {
	bookingService reservation.BookingService
	logger         *slog.Logger
}

func NewPropertyHandler(logger *slog.Logger, bookingService reservation.BookingService) *PropertyHandler {
	return &PropertyHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// Availability lists the ranges of [from, to) held by active bookings
func (h *PropertyHandler) Availability(c *gin.Context) {
	propertyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || propertyID <= 0 {
		RespondBadRequest(c, "Invalid property ID")
		return
	}

	var params AvailabilityParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	from, err := availability.ParseDay(params.From)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be a YYYY-MM-DD date")
		return
	}
	to, err := availability.ParseDay(params.To)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be a YYYY-MM-DD date")
		return
	}

	intervals, err := h.bookingService.Occupied(c.Request.Context(), propertyID, from, to)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	occupied := make([]OccupiedRangeResponse, 0, len(intervals))
	for _, interval := range intervals {
		occupied = append(occupied, OccupiedRangeResponse{
			BookingID: interval.BookingID.String(),
			From:      interval.Range.Start.Format(availability.DateLayout),
			To:        interval.Range.End.Format(availability.DateLayout),
		})
	}

	RespondOK(c, AvailabilityResponse{
		PropertyID: propertyID,
		From:       params.From,
		To:         params.To,
		Occupied:   occupied,
	})
}
