// Package memory provides an in-process reservation store for STORAGE_DRIVER=memory and
// for tests. Transactions take per-booking, per-property and per-account locks and hold
// them until they end. Writes are applied immediately and undone on rollback, except
// outbox rows, which stay staged on the transaction until it commits.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/domain/store"
)

type entryKey struct {
	accountID   int64
	reason      ledger.Reason
	referenceID string
}

// Store implements store.Store in memory
type Store struct {
	mu    sync.RWMutex
	locks *lockTable

	bookings  map[uuid.UUID]*booking.Booking
	occupancy map[int64]map[uuid.UUID]availability.DateRange

	entries   []*ledger.Entry
	entryKeys map[entryKey]struct{}
	balances  map[int64]int64

	messages     []*outbox.Message
	nextOutboxID int64
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		locks:     newLockTable(),
		bookings:  make(map[uuid.UUID]*booking.Booking),
		occupancy: make(map[int64]map[uuid.UUID]availability.DateRange),
		entryKeys: make(map[entryKey]struct{}),
		balances:  make(map[int64]int64),
	}
}

func (s *Store) Availability() availability.Index { return &availabilityRepo{s: s} }
func (s *Store) Bookings() booking.Repository     { return &bookingRepo{s: s} }
func (s *Store) Ledger() ledger.Repository        { return &ledgerRepo{s: s} }
func (s *Store) Outbox() outbox.Repository        { return &outboxRepo{s: s} }

// WithinTx runs fn as one unit of work. Any error or panic undoes every write fn made.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) (err error) {
	tx := &memTx{s: s, held: make(map[string]struct{})}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// memTx is the unit of work handed to WithinTx callbacks
type memTx struct {
	s      *Store
	held   map[string]struct{}
	undo   []func()
	staged []*outbox.Message
}

func (t *memTx) Availability() availability.Index { return &availabilityRepo{s: t.s, tx: t} }
func (t *memTx) Bookings() booking.Repository     { return &bookingRepo{s: t.s, tx: t} }
func (t *memTx) Ledger() ledger.Repository        { return &ledgerRepo{s: t.s, tx: t} }
func (t *memTx) Outbox() outbox.Repository        { return &outboxRepo{s: t.s, tx: t} }

// lock takes the key for the rest of the transaction; re-locking a held key is a no-op
func (t *memTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	t.held[key] = struct{}{}
	return nil
}

// record registers an undo step; s.mu must be held by the caller
func (t *memTx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

// commit publishes staged outbox rows before the locks go, so a booking's events keep
// their transaction order
func (t *memTx) commit() {
	if len(t.staged) > 0 {
		t.s.mu.Lock()
		t.s.messages = append(t.s.messages, t.staged...)
		t.s.mu.Unlock()
	}
	t.staged = nil
	t.undo = nil
	t.unlockAll()
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.undo = nil
	t.staged = nil
	t.unlockAll()
}

func (t *memTx) unlockAll() {
	for key := range t.held {
		t.s.locks.release(key)
	}
	t.held = make(map[string]struct{})
}

func bookingKey(id uuid.UUID) string { return "booking:" + id.String() }
func propertyKey(id int64) string    { return "property:" + strconv.FormatInt(id, 10) }
func accountKey(id int64) string     { return "account:" + strconv.FormatInt(id, 10) }
func record(tx *memTx, undo func()) {
	if tx != nil {
		tx.record(undo)
	}
}
