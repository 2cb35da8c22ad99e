// Package availability models the per-property occupancy calendar and the index that
// guards it against overlapping reservations.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

var (
	// ErrConflict means the requested range overlaps an active reservation
	ErrConflict = errors.New("date range overlaps an active reservation")
	// ErrEmptyRange means the end of a range is not after its start
	ErrEmptyRange = errors.New("date range end must be after its start")
)

// DateRange is a half-open span of calendar days [Start, End).
// Adjacent ranges where one ends on the day the other starts do not overlap.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date as midnight UTC
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// NewDateRange normalises both bounds to calendar days and rejects empty ranges
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if !r.End.After(r.Start) {
		return DateRange{}, ErrEmptyRange
	}
	return r, nil
}

// Overlaps reports whether the two half-open ranges share at least one night
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Nights is the number of nights covered by the range
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

func (r DateRange) String() string {
	return "[" + r.Start.Format(DateLayout) + ", " + r.End.Format(DateLayout) + ")"
}

// Interval is one occupied range of a property, owned by a booking
type Interval struct {
	PropertyID int64     `json:"property_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Range      DateRange `json:"range"`
}

// Index is the authoritative occupancy record. Reserve and Release must run inside the
// same transaction as the booking row they belong to.
type Index interface {
	// Reserve records the range for the property, or returns ErrConflict when it overlaps
	// any interval already held. Concurrent reservations on one property serialize.
	Reserve(ctx context.Context, propertyID int64, bookingID uuid.UUID, r DateRange) error
	// Release removes the interval held by the booking
	Release(ctx context.Context, propertyID int64, bookingID uuid.UUID) error
	// Occupied lists intervals of the property overlapping the window, ordered by start
	Occupied(ctx context.Context, propertyID int64, window DateRange) ([]Interval, error)
}
