package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kerya-reservation-engine/internal/domain/outbox"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/platform/messaging/producers"
)

// EventPublisher publishes one outbox message and marks it processed
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EventArchive keeps a copy of every published event; Archive must be idempotent on event id
type EventArchive interface {
	Archive(ctx context.Context, event *outbox.Event) error
}

// KafkaEventPublisher archives the event, writes it to Kafka keyed by booking id and marks
// the outbox row processed. A failure at any step leaves the row pending for the next poll,
// so delivery is at least once and consumers deduplicate by event_id.
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.EventPublisher
	archive    EventArchive
	logger     *slog.Logger
}

// NewEventPublisher creates a publisher; archive may be nil when no event archive is configured
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.EventPublisher,
	archive EventArchive,
	logger *slog.Logger,
) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		archive:    archive,
		logger:     logger,
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to decode event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark undecodable outbox message FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if p.archive != nil {
		if err := p.archive.Archive(ctx, event); err != nil {
			return fmt.Errorf("failed to archive event %s: %w", event.ID, err)
		}
	}

	headers := map[string]string{
		"event-id":   event.ID.String(),
		"event-type": string(event.Type),
	}
	if event.CorrelationID != "" {
		headers["correlation-id"] = event.CorrelationID
	}
	if err := p.producer.Publish(ctx, event.BookingID.String(), message.Payload, headers); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", event.ID.String(), "error", err,
		)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", event.ID, message.ID, err)
	}

	logger.Info("Published booking event",
		"outbox_id", message.ID,
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"booking_id", event.BookingID.String(),
	)
	return nil
}
