package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/domain/store"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
)

// txExecutor is satisfied by *persistence.PostgresDB
type txExecutor interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Store implements store.Store on one PostgreSQL database
type Store struct {
	db           txExecutor
	bookings     *BookingRepository
	availability *AvailabilityRepository
	ledger       *LedgerRepository
	outbox       *OutboxRepository
}

var _ store.Store = (*Store)(nil)

func NewStore(logger *slog.Logger, db *persistence.PostgresDB) *Store {
	return &Store{
		db:           db,
		bookings:     NewBookingRepository(logger, db),
		availability: NewAvailabilityRepository(logger, db),
		ledger:       NewLedgerRepository(logger, db),
		outbox:       NewOutboxRepository(logger, db),
	}
}

func (s *Store) Availability() availability.Index { return s.availability }
func (s *Store) Bookings() booking.Repository     { return s.bookings }
func (s *Store) Ledger() ledger.Repository        { return s.ledger }
func (s *Store) Outbox() outbox.Repository        { return s.outbox }

// WithinTx runs fn with repositories bound to one database transaction. Serialization
// failures and deadlocks re-run fn from the start.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepositories{
			bookings:     s.bookings.WithTx(tx),
			availability: s.availability.WithTx(tx),
			ledger:       s.ledger.WithTx(tx),
			outbox:       s.outbox.WithTx(tx),
		})
	})
}

type txRepositories struct {
	bookings     *BookingRepository
	availability *AvailabilityRepository
	ledger       *LedgerRepository
	outbox       *OutboxRepository
}

func (t *txRepositories) Availability() availability.Index { return t.availability }
func (t *txRepositories) Bookings() booking.Repository     { return t.bookings }
func (t *txRepositories) Ledger() ledger.Repository        { return t.ledger }
func (t *txRepositories) Outbox() outbox.Repository        { return t.outbox }
