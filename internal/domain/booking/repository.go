package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a booking listing. Zero values are ignored.
type Filter struct {
	RenterID   int64
	HostID     int64
	PropertyID int64
	Status     Status
	Limit      int
	Offset     int
}

// Repository manages booking persistence
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// LockForUpdate reads the booking and holds it exclusively until the transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// UpdateState persists status, payment_status and updated_at; nothing else is writable
	UpdateState(ctx context.Context, b *Booking) error

	List(ctx context.Context, filter Filter) ([]*Booking, error)
	Count(ctx context.Context, filter Filter) (int64, error)

	// ListDueForCompletion returns confirmed, paid bookings whose check-out is not after now
	ListDueForCompletion(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
