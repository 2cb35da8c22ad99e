// Package policy evaluates the time-sensitive booking rules. Everything here is a pure
// function of its arguments: no clocks, no I/O, no blocking.
package policy

import (
	"fmt"
	"time"

	"github.com/kerya-reservation-engine/internal/config"
)

// WindowRules bound the length and lead time of a stay
type WindowRules struct {
	MaxBookingDays int
	MinNotice      time.Duration
}

// PointsRules are the fixed point amounts per activity
type PointsRules struct {
	RegistrationBonus int64
	BookingEarn       int64
	ReviewEarn        int64
	PostCost          int64
}

// Rules is the full policy set consumed by the reservation engine
type Rules struct {
	Window       WindowRules
	Cancellation CancellationPolicy
	ReviewDays   int
	Points       PointsRules
}

// FromConfig builds the rule set from configuration, parsing the optional refund schedule
func FromConfig(cfg *config.Config) (Rules, error) {
	schedule, err := ParseRefundSchedule(cfg.Booking.RefundSchedule)
	if err != nil {
		return Rules{}, fmt.Errorf("invalid REFUND_SCHEDULE: %w", err)
	}

	return Rules{
		Window: WindowRules{
			MaxBookingDays: cfg.Booking.MaxBookingDays,
			MinNotice:      time.Duration(cfg.Booking.MinBookingNoticeHours) * time.Hour,
		},
		Cancellation: CancellationPolicy{
			NoticeHours: cfg.Booking.CancellationPolicyHours,
			Schedule:    schedule,
		},
		ReviewDays: cfg.Booking.ReviewDaysLimit,
		Points: PointsRules{
			RegistrationBonus: cfg.Points.RegistrationBonus,
			BookingEarn:       cfg.Points.BookingEarn,
			ReviewEarn:        cfg.Points.ReviewEarn,
			PostCost:          cfg.Points.PostCost,
		},
	}, nil
}
