package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
)

const (
	// BookingEventCollectionName is the name of the published event archive in MongoDB
	BookingEventCollectionName = "booking_events"
)

type eventDocument struct {
	EventID       string    `bson:"_id"`
	Type          string    `bson:"type"`
	BookingID     string    `bson:"booking_id"`
	OccurredAt    time.Time `bson:"occurred_at"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	Data          bson.M    `bson:"data"`
	ArchivedAt    time.Time `bson:"archived_at"`
}

// BookingEventArchive keeps a queryable copy of every published booking event
type BookingEventArchive struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewBookingEventArchive(logger *slog.Logger, db *mongo.Database) *BookingEventArchive {
	return &BookingEventArchive{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the per-booking timeline index
func (a *BookingEventArchive) EnsureIndexes(ctx context.Context) error {
	return persistence.EnsureIndexes(ctx, a.db.Collection(BookingEventCollectionName), mongo.IndexModel{
		Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
}

// Archive stores the event keyed by its event id. Archiving the same event twice is a no-op.
func (a *BookingEventArchive) Archive(ctx context.Context, event *outbox.Event) error {
	var data bson.M
	if len(event.Data) > 0 {
		if err := bson.UnmarshalExtJSON(event.Data, false, &data); err != nil {
			return fmt.Errorf("failed to decode data of event %s: %w", event.ID, err)
		}
	}

	doc := eventDocument{
		EventID:       event.ID.String(),
		Type:          string(event.Type),
		BookingID:     event.BookingID.String(),
		OccurredAt:    event.OccurredAt,
		CorrelationID: event.CorrelationID,
		Data:          data,
		ArchivedAt:    time.Now().UTC(),
	}

	_, err := a.db.Collection(BookingEventCollectionName).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		a.logger.Error("Failed to archive booking event",
			"event_id", event.ID.String(),
			"booking_id", event.BookingID.String(),
			"error", err)
		return fmt.Errorf("failed to archive booking event: %w", err)
	}

	return nil
}
