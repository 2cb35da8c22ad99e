package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/platform/messaging/producers"
)

// PointsService is the part of the points ledger driven by user activity
type PointsService interface {
	GrantRegistrationBonus(ctx context.Context, accountID int64) error
	GrantReviewEarn(ctx context.Context, accountID int64, reviewID string) error
	ChargePost(ctx context.Context, accountID int64, postID string) error
}

// ActivityEventHandler grants or charges points for user activity and mirrors listing
// updates into the property catalog
type ActivityEventHandler struct {
	points   PointsService
	catalog  property.Catalog
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewActivityEventHandler(
	logger *slog.Logger,
	points PointsService,
	catalog property.Catalog,
	producer producers.DeadLetterPublisher,
) *ActivityEventHandler {
	return &ActivityEventHandler{
		points:   points,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
	}
}

var errPermanent = errors.New("activity rejected")

func (h *ActivityEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var activity shared.ActivityEvent
	if err := json.Unmarshal(value, &activity); err != nil {
		h.logger.Error("Failed to unmarshal activity event", "error", err, "message_key", string(key))
		return deadLetter(ctx, h.logger, h.producer, key, value, fmt.Errorf("unmarshal activity event: %w", err))
	}
	if err := activity.Validate(); err != nil {
		h.logger.Error("Rejected invalid activity event", "error", err, "message_key", string(key))
		return deadLetter(ctx, h.logger, h.producer, key, value, err)
	}

	ctx = shared.WithCorrelationID(ctx, activity.CorrelationID)
	logger := h.logger.With("activity", string(activity.Type))
	if activity.CorrelationID != "" {
		logger = logger.With("correlation_id", activity.CorrelationID)
	}

	err := h.apply(ctx, &activity)
	switch {
	case err == nil:
		logger.Info("Applied activity event", "account_id", activity.AccountID, "reference_id", activity.ReferenceID)
		return nil
	case errors.Is(err, errPermanent), errors.Is(err, ledger.ErrInsufficientPoints):
		logger.Warn("Activity event cannot be applied", "account_id", activity.AccountID, "error", err)
		return deadLetter(ctx, h.logger, h.producer, key, value, err)
	default:
		logger.Error("Failed to apply activity event", "account_id", activity.AccountID, "error", err)
		return fmt.Errorf("activity %s failed: %w", activity.Type, err)
	}
}

func (h *ActivityEventHandler) apply(ctx context.Context, activity *shared.ActivityEvent) error {
	switch activity.Type {
	case shared.ActivityUserRegistered:
		return h.points.GrantRegistrationBonus(ctx, activity.AccountID)
	case shared.ActivityReviewPosted:
		return h.points.GrantReviewEarn(ctx, activity.AccountID, activity.ReferenceID)
	case shared.ActivityPostCreated:
		return h.points.ChargePost(ctx, activity.AccountID, activity.ReferenceID)
	case shared.ActivityPropertyUpserted:
		var p property.Property
		if err := json.Unmarshal(activity.Property, &p); err != nil {
			return fmt.Errorf("%w: unmarshal property: %v", errPermanent, err)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		return h.catalog.Upsert(ctx, &p)
	default:
		return fmt.Errorf("%w: %s", errPermanent, shared.ErrInvalidActivityType)
	}
}
