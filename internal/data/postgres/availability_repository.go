package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kerya-reservation-engine/internal/domain/availability"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
)

// AvailabilityRepository implements availability.Index on the property_occupancy table.
// Writers on one property are serialized by a transaction-scoped advisory lock keyed by
// the property id; the exclusion constraint on the table rejects anything that slips past.
type AvailabilityRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAvailabilityRepository(logger *slog.Logger, db *persistence.PostgresDB) *AvailabilityRepository {
	return &AvailabilityRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AvailabilityRepository) WithTx(tx pgx.Tx) *AvailabilityRepository {
	return &AvailabilityRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Reserve must run inside a transaction; the advisory lock is released at commit or rollback
func (r *AvailabilityRepository) Reserve(ctx context.Context, propertyID int64, bookingID uuid.UUID, stay availability.DateRange) error {
	if _, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, propertyID); err != nil {
		r.logger.Error("Failed to lock property calendar", "property_id", propertyID, "error", err)
		return fmt.Errorf("failed to lock property calendar: %w", err)
	}

	probe := `
		SELECT EXISTS (
			SELECT 1 FROM property_occupancy
			WHERE property_id = $1 AND stay && daterange($2::date, $3::date, '[)')
		)
	`
	var overlaps bool
	if err := r.querier.QueryRow(ctx, probe, propertyID, stay.Start, stay.End).Scan(&overlaps); err != nil {
		r.logger.Error("Failed to probe property calendar", "property_id", propertyID, "error", err)
		return fmt.Errorf("failed to probe property calendar: %w", err)
	}
	if overlaps {
		return availability.ErrConflict
	}

	insert := `
		INSERT INTO property_occupancy (booking_id, property_id, stay)
		VALUES ($1, $2, daterange($3::date, $4::date, '[)'))
	`
	if _, err := r.querier.Exec(ctx, insert, bookingID, propertyID, stay.Start, stay.End); err != nil {
		if persistence.SQLState(err) == persistence.CodeExclusionViolation {
			return availability.ErrConflict
		}
		r.logger.Error("Failed to reserve stay", "property_id", propertyID, "booking_id", bookingID.String(), "error", err)
		return fmt.Errorf("failed to reserve stay: %w", err)
	}

	return nil
}

// Release frees the interval held by the booking. Releasing a booking without an
// interval is not an error.
func (r *AvailabilityRepository) Release(ctx context.Context, propertyID int64, bookingID uuid.UUID) error {
	if _, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, propertyID); err != nil {
		return fmt.Errorf("failed to lock property calendar: %w", err)
	}

	query := `DELETE FROM property_occupancy WHERE property_id = $1 AND booking_id = $2`
	if _, err := r.querier.Exec(ctx, query, propertyID, bookingID); err != nil {
		r.logger.Error("Failed to release stay", "property_id", propertyID, "booking_id", bookingID.String(), "error", err)
		return fmt.Errorf("failed to release stay: %w", err)
	}

	return nil
}

// Occupied lists the intervals of the property that overlap the window
func (r *AvailabilityRepository) Occupied(ctx context.Context, propertyID int64, window availability.DateRange) ([]availability.Interval, error) {
	query := `
		SELECT booking_id, lower(stay), upper(stay)
		FROM property_occupancy
		WHERE property_id = $1 AND stay && daterange($2::date, $3::date, '[)')
		ORDER BY lower(stay)
	`

	rows, err := r.querier.Query(ctx, query, propertyID, window.Start, window.End)
	if err != nil {
		r.logger.Error("Failed to read property calendar", "property_id", propertyID, "error", err)
		return nil, fmt.Errorf("failed to read property calendar: %w", err)
	}
	defer rows.Close()

	intervals := make([]availability.Interval, 0)
	for rows.Next() {
		iv := availability.Interval{PropertyID: propertyID}
		if err := rows.Scan(&iv.BookingID, &iv.Range.Start, &iv.Range.End); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		iv.Range.Start = iv.Range.Start.UTC()
		iv.Range.End = iv.Range.End.UTC()
		intervals = append(intervals, iv)
	}

	return intervals, rows.Err()
}
