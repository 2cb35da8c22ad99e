package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/domain/shared"
)

// hold takes key for the transaction, or for the duration of the call outside one
func hold(ctx context.Context, s *Store, tx *memTx, key string) (func(), error) {
	if tx != nil {
		return func() {}, tx.lock(ctx, key)
	}
	if err := s.locks.acquire(ctx, key); err != nil {
		return nil, err
	}
	return func() { s.locks.release(key) }, nil
}

type bookingRepo struct {
	s  *Store
	tx *memTx
}

func (r *bookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *b
	r.s.bookings[b.ID] = &stored
	record(r.tx, func() { delete(r.s.bookings, b.ID) })
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound{ID: id}
	}
	out := *b
	return &out, nil
}

func (r *bookingRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	release, err := hold(ctx, r.s, r.tx, bookingKey(id))
	if err != nil {
		return nil, err
	}
	defer release()
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) UpdateState(ctx context.Context, b *booking.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.bookings[b.ID]
	if !ok {
		return booking.ErrBookingNotFound{ID: b.ID}
	}
	prevStatus, prevPayment, prevUpdated := current.Status, current.PaymentStatus, current.UpdatedAt
	current.Status = b.Status
	current.PaymentStatus = b.PaymentStatus
	current.UpdatedAt = b.UpdatedAt
	record(r.tx, func() {
		current.Status, current.PaymentStatus, current.UpdatedAt = prevStatus, prevPayment, prevUpdated
	})
	return nil
}

func (r *bookingRepo) matching(filter booking.Filter) []*booking.Booking {
	var out []*booking.Booking
	for _, b := range r.s.bookings {
		if filter.RenterID != 0 && b.RenterID != filter.RenterID {
			continue
		}
		if filter.HostID != 0 && b.HostID != filter.HostID {
			continue
		}
		if filter.PropertyID != 0 && b.PropertyID != filter.PropertyID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (r *bookingRepo) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	found := r.matching(filter)
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.After(found[j].CreatedAt)
		}
		return found[i].ID.String() < found[j].ID.String()
	})

	start := filter.Offset
	if start < 0 {
		start = 0
	}
	page := make([]*booking.Booking, 0)
	for i := start; i < len(found); i++ {
		if filter.Limit > 0 && len(page) == filter.Limit {
			break
		}
		b := *found[i]
		page = append(page, &b)
	}
	return page, nil
}

func (r *bookingRepo) Count(ctx context.Context, filter booking.Filter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *bookingRepo) ListDueForCompletion(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	due := r.matching(booking.Filter{Status: booking.StatusConfirmed})
	sort.Slice(due, func(i, j int) bool { return due[i].CheckOut.Before(due[j].CheckOut) })

	var ids []uuid.UUID
	for _, b := range due {
		if b.PaymentStatus != booking.PaymentPaid || b.CheckOut.After(now) {
			continue
		}
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

type availabilityRepo struct {
	s  *Store
	tx *memTx
}

func (r *availabilityRepo) Reserve(ctx context.Context, propertyID int64, bookingID uuid.UUID, stay availability.DateRange) error {
	release, err := hold(ctx, r.s, r.tx, propertyKey(propertyID))
	if err != nil {
		return err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	calendar := r.s.occupancy[propertyID]
	for _, held := range calendar {
		if held.Overlaps(stay) {
			return availability.ErrConflict
		}
	}
	if calendar == nil {
		calendar = make(map[uuid.UUID]availability.DateRange)
		r.s.occupancy[propertyID] = calendar
	}
	calendar[bookingID] = stay
	record(r.tx, func() { delete(calendar, bookingID) })
	return nil
}

func (r *availabilityRepo) Release(ctx context.Context, propertyID int64, bookingID uuid.UUID) error {
	release, err := hold(ctx, r.s, r.tx, propertyKey(propertyID))
	if err != nil {
		return err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	calendar := r.s.occupancy[propertyID]
	stay, ok := calendar[bookingID]
	if !ok {
		return nil
	}
	delete(calendar, bookingID)
	record(r.tx, func() { calendar[bookingID] = stay })
	return nil
}

func (r *availabilityRepo) Occupied(ctx context.Context, propertyID int64, window availability.DateRange) ([]availability.Interval, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	intervals := make([]availability.Interval, 0)
	for id, stay := range r.s.occupancy[propertyID] {
		if stay.Overlaps(window) {
			intervals = append(intervals, availability.Interval{PropertyID: propertyID, BookingID: id, Range: stay})
		}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Range.Start.Before(intervals[j].Range.Start) })
	return intervals, nil
}

type ledgerRepo struct {
	s  *Store
	tx *memTx
}

func (r *ledgerRepo) Append(ctx context.Context, entry *ledger.Entry) error {
	release, err := hold(ctx, r.s, r.tx, accountKey(entry.AccountID))
	if err != nil {
		return err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := entryKey{accountID: entry.AccountID, reason: entry.Reason, referenceID: entry.ReferenceID}
	if _, dup := r.s.entryKeys[key]; dup {
		return ledger.ErrDuplicateEntry{AccountID: entry.AccountID, Reason: entry.Reason, ReferenceID: entry.ReferenceID}
	}

	previous := r.s.balances[entry.AccountID]
	if previous+entry.Amount < 0 {
		return ledger.ErrInsufficientPoints
	}

	stored := *entry
	r.s.entries = append(r.s.entries, &stored)
	r.s.entryKeys[key] = struct{}{}
	r.s.balances[entry.AccountID] = previous + entry.Amount

	record(r.tx, func() {
		for i, e := range r.s.entries {
			if e == &stored {
				r.s.entries = append(r.s.entries[:i], r.s.entries[i+1:]...)
				break
			}
		}
		delete(r.s.entryKeys, key)
		r.s.balances[entry.AccountID] = previous
	})
	return nil
}

func (r *ledgerRepo) Balance(ctx context.Context, accountID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.balances[accountID], nil
}

func (r *ledgerRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*ledger.Entry, 0)
	skipped := 0
	// newest first
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		e := r.s.entries[i]
		if e.AccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (r *ledgerRepo) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, e := range r.s.entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

type outboxRepo struct {
	s  *Store
	tx *memTx
}

func (r *outboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextOutboxID++
	message.ID = r.s.nextOutboxID
	stored := *message
	if r.tx != nil {
		// visible to the poller only once the transaction commits
		r.tx.staged = append(r.tx.staged, &stored)
		return nil
	}
	r.s.messages = append(r.s.messages, &stored)
	return nil
}

func (r *outboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*outbox.Message
	for _, m := range r.s.messages {
		if m.Status != shared.OutboxStatusPending {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *outboxRepo) find(id int64) (*outbox.Message, error) {
	for _, m := range r.s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{ID: id}
}

func (r *outboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, err := r.find(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.Status = status
	m.LastAttemptAt = &now
	return nil
}

func (r *outboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, err := r.find(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.Attempts++
	m.LastAttemptAt = &now
	return nil
}
