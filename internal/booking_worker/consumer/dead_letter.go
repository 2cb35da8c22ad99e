package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kerya-reservation-engine/internal/platform/messaging/producers"
)

// deadLetter parks a message that can never succeed. When the DLQ is unavailable the
// cause is returned, so the offset stays uncommitted and the message is retried.
func deadLetter(ctx context.Context, logger *slog.Logger, dlq producers.DeadLetterPublisher, key, value []byte, cause error) error {
	if dlq == nil {
		return cause
	}

	reason := cause.Error()
	if err := dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("%w (dlq unavailable: %v)", cause, err)
	}
	return nil
}
