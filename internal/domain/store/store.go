// Package store defines the transactional boundary the reservation engine works through.
// One transaction spans the availability index, bookings, the points ledger and the outbox,
// so a business change and the events describing it commit or abort together.
package store

import (
	"context"

	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/outbox"
)

// Repositories groups the repositories bound to one unit of work
type Repositories interface {
	Availability() availability.Index
	Bookings() booking.Repository
	Ledger() ledger.Repository
	Outbox() outbox.Repository
}

// Store exposes non-transactional repositories for reads and WithinTx for writes.
// Locks taken through the tx repositories are held until fn returns. fn may be run more
// than once when the backend retries a transient conflict, so it must not have side
// effects outside tx.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
