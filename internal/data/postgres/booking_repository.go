// Package postgres provides the PostgreSQL implementation of the reservation store:
// bookings, the property occupancy index, the points ledger and the event outbox all
// share one database so every business change commits atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const bookingColumns = `id, property_id, host_id, renter_id, check_in, check_out, guests_count,
		total_price::text, status, payment_status, special_requests, created_at, updated_at`

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) *BookingRepository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository that runs every statement in tx
func (r *BookingRepository) WithTx(tx pgx.Tx) *BookingRepository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a new booking row
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (id, property_id, host_id, renter_id, check_in, check_out, guests_count,
			total_price, status, payment_status, special_requests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.PropertyID,
		b.HostID,
		b.RenterID,
		b.CheckIn,
		b.CheckOut,
		b.GuestsCount,
		b.TotalPrice.StringFixed(2),
		string(b.Status),
		string(b.PaymentStatus),
		b.SpecialRequests,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create booking", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID reads a booking without locking it
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{ID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// LockForUpdate reads the booking and row-locks it for the rest of the transaction
func (r *BookingRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{ID: id}
		}
		r.logger.Error("Failed to lock booking for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock booking for update: %w", err)
	}

	return b, nil
}

// UpdateState writes the two state axes. The remaining columns are immutable.
func (r *BookingRepository) UpdateState(ctx context.Context, b *booking.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, string(b.Status), string(b.PaymentStatus), b.UpdatedAt, b.ID)
	if err != nil {
		r.logger.Error("Failed to update booking state", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to update booking state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{ID: b.ID}
	}

	return nil
}

// List returns bookings matching the filter, newest first
func (r *BookingRepository) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list bookings", "error", err)
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*booking.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.logger.Error("Failed to scan booking", "error", err)
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bookings: %w", err)
	}

	return bookings, nil
}

// Count returns how many bookings match the filter, ignoring paging
func (r *BookingRepository) Count(ctx context.Context, filter booking.Filter) (int64, error) {
	where, args := filterClause(filter)

	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count bookings", "error", err)
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

// ListDueForCompletion returns confirmed, paid bookings whose stay has ended
func (r *BookingRepository) ListDueForCompletion(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM bookings
		WHERE status = 'confirmed' AND payment_status = 'paid' AND check_out <= $1
		ORDER BY check_out ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, now.UTC(), limit)
	if err != nil {
		r.logger.Error("Failed to list bookings due for completion", "error", err)
		return nil, fmt.Errorf("failed to list bookings due for completion: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func filterClause(filter booking.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}

	if filter.RenterID != 0 {
		add("renter_id", filter.RenterID)
	}
	if filter.HostID != 0 {
		add("host_id", filter.HostID)
	}
	if filter.PropertyID != 0 {
		add("property_id", filter.PropertyID)
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		b             booking.Booking
		total         string
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&b.ID,
		&b.PropertyID,
		&b.HostID,
		&b.RenterID,
		&b.CheckIn,
		&b.CheckOut,
		&b.GuestsCount,
		&total,
		&status,
		&paymentStatus,
		&b.SpecialRequests,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid total_price %q: %w", total, err)
	}
	b.TotalPrice = price
	b.Status = booking.Status(status)
	b.PaymentStatus = booking.PaymentStatus(paymentStatus)
	b.CheckIn = b.CheckIn.UTC()
	b.CheckOut = b.CheckOut.UTC()

	return &b, nil
}
