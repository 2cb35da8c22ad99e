package booking_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kerya-reservation-engine/internal/booking_api/handler"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	bookingHandler *handler.BookingHandler,
	propertyHandler *handler.PropertyHandler,
	pointsHandler *handler.PointsHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints, all on behalf of the X-User-ID caller
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor())
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/:id", bookingHandler.GetByID)
			bookings.PUT("/:id/confirm", bookingHandler.Confirm)
			bookings.PUT("/:id/cancel", bookingHandler.Cancel)
			bookings.PUT("/:id/payment", bookingHandler.UpdatePayment)
			bookings.GET("/:id/review-eligibility", bookingHandler.ReviewEligibility)
		}

		properties := v1.Group("/properties")
		{
			properties.GET("/:id/availability", propertyHandler.Availability)
		}

		points := v1.Group("/accounts/:id/points")
		{
			points.GET("", pointsHandler.Balance)
			points.GET("/entries", pointsHandler.Entries)
			points.POST("/spend", pointsHandler.Spend)
			points.POST("/adjust", pointsHandler.Adjust)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
