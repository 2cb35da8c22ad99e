// Package mongo holds the document-store read models: the mirrored property catalog and
// the archive of published booking events.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
)

const (
	// PropertyCollectionName is the name of the property read model collection in MongoDB
	PropertyCollectionName = "properties"
)

type propertyDocument struct {
	ID            int64                `bson:"_id"`
	HostID        int64                `bson:"host_id"`
	Title         string               `bson:"title,omitempty"`
	PricePerNight primitive.Decimal128 `bson:"price_per_night"`
	MaxGuests     int                  `bson:"max_guests"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

// PropertyRepository implements property.Catalog over the mirrored listings
type PropertyRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ property.Catalog = (*PropertyRepository)(nil)

func NewPropertyRepository(logger *slog.Logger, db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the host lookup index
func (r *PropertyRepository) EnsureIndexes(ctx context.Context) error {
	return persistence.EnsureIndexes(ctx, r.db.Collection(PropertyCollectionName), mongo.IndexModel{
		Keys: bson.D{{Key: "host_id", Value: 1}},
	})
}

// GetByID returns ErrPropertyNotFound when the listing has not been mirrored
func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*property.Property, error) {
	collection := r.db.Collection(PropertyCollectionName)

	var doc propertyDocument
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrPropertyNotFound{ID: id}
		}
		r.logger.Error("Failed to get property",
			"property_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	price, err := decimal.NewFromString(doc.PricePerNight.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse price of property %d: %w", id, err)
	}

	return &property.Property{
		ID:            doc.ID,
		HostID:        doc.HostID,
		Title:         doc.Title,
		PricePerNight: price,
		MaxGuests:     doc.MaxGuests,
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}

// Upsert mirrors a listing. An update older than the stored version is ignored, so
// replayed or reordered activity messages cannot roll a listing back.
func (r *PropertyRepository) Upsert(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	price, err := primitive.ParseDecimal128(p.PricePerNight.String())
	if err != nil {
		return fmt.Errorf("failed to encode price of property %d: %w", p.ID, err)
	}

	collection := r.db.Collection(PropertyCollectionName)
	filter := bson.M{
		"_id":        p.ID,
		"updated_at": bson.M{"$lte": p.UpdatedAt},
	}
	update := bson.M{
		"$set": bson.M{
			"host_id":         p.HostID,
			"title":           p.Title,
			"price_per_night": price,
			"max_guests":      p.MaxGuests,
			"updated_at":      p.UpdatedAt,
		},
	}

	_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// the filter missed because a newer version is stored, and the upsert hit its _id
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Ignoring stale property update", "property_id", p.ID)
			return nil
		}
		r.logger.Error("Failed to upsert property",
			"property_id", p.ID,
			"error", err)
		return fmt.Errorf("failed to upsert property: %w", err)
	}

	return nil
}
