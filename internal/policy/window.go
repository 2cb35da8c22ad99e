package policy

import (
	"fmt"
	"time"

	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// ValidateWindow checks the stay is non-empty, not longer than the maximum and starts
// far enough ahead of now. Check-in is measured from midnight UTC of its date.
func ValidateWindow(checkIn, checkOut, now time.Time, rules WindowRules) error {
	stay, err := availability.NewDateRange(checkIn, checkOut)
	if err != nil {
		return booking.ValidationError{Reason: "check_out must be after check_in"}
	}
	if stay.Nights() > rules.MaxBookingDays {
		return booking.ValidationError{Reason: fmt.Sprintf("stay of %d nights exceeds the maximum of %d", stay.Nights(), rules.MaxBookingDays)}
	}
	if stay.Start.Sub(now) < rules.MinNotice {
		return booking.ValidationError{Reason: fmt.Sprintf("check_in must be at least %s from now", rules.MinNotice)}
	}
	return nil
}

// ValidateGuests checks the party fits the property
func ValidateGuests(guests, maxGuests int) error {
	if guests < 1 {
		return booking.ValidationError{Reason: "guests_count must be at least 1"}
	}
	if guests > maxGuests {
		return booking.ValidationError{Reason: fmt.Sprintf("guests_count %d exceeds the property maximum of %d", guests, maxGuests)}
	}
	return nil
}

// TotalPrice is nights times the nightly price
func TotalPrice(pricePerNight decimal.Decimal, nights int) decimal.Decimal {
	return pricePerNight.Mul(decimal.NewFromInt(int64(nights)))
}

// BookingEarnPoints is the base booking reward plus one point per 10 units spent
func BookingEarnPoints(total decimal.Decimal, base int64) int64 {
	return base + total.Div(decimal.NewFromInt(10)).Floor().IntPart()
}

// ReviewDeadline is the last instant a completed stay can still be reviewed
func ReviewDeadline(checkOut time.Time, reviewDays int) time.Time {
	return checkOut.AddDate(0, 0, reviewDays)
}

// CanReview reports whether now falls inside the review window after check-out
func CanReview(checkOut, now time.Time, reviewDays int) bool {
	return !now.After(ReviewDeadline(checkOut, reviewDays))
}
