// Package property describes the listing data the reservation engine reads from the
// property collaborator. The engine never writes listings; it only mirrors them.
package property

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Property is the pricing and capacity view of a listing
type Property struct {
	ID            int64           `json:"id"`
	HostID        int64           `json:"host_id"`
	Title         string          `json:"title,omitempty"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	MaxGuests     int             `json:"max_guests"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks a mirrored listing is usable for pricing
func (p *Property) Validate() error {
	switch {
	case p.ID <= 0:
		return errors.New("property id must be positive")
	case p.HostID <= 0:
		return errors.New("property host_id must be positive")
	case !p.PricePerNight.IsPositive():
		return errors.New("property price_per_night must be positive")
	case p.MaxGuests <= 0:
		return errors.New("property max_guests must be positive")
	}
	return nil
}

// Provider supplies read-only property data by id
type Provider interface {
	GetByID(ctx context.Context, id int64) (*Property, error)
}

// Catalog is a Provider that also accepts mirrored listing updates
type Catalog interface {
	Provider
	Upsert(ctx context.Context, p *Property) error
}

// ErrPropertyNotFound indicates the collaborator has no such property
type ErrPropertyNotFound struct {
	ID int64
}

func (e ErrPropertyNotFound) Error() string {
	return "property not found: " + strconv.FormatInt(e.ID, 10)
}

// Is implements the errors.Is interface; a zero ID target matches any missing property
func (e ErrPropertyNotFound) Is(target error) bool {
	t, ok := target.(ErrPropertyNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || t.ID == e.ID
}
