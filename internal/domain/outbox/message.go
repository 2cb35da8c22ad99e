package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/domain/shared"
)

// Event is the envelope published to subscribers for every lifecycle transition
type Event struct {
	ID            uuid.UUID        `json:"event_id"`
	Type          shared.EventType `json:"type"`
	BookingID     uuid.UUID        `json:"booking_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Data          json.RawMessage  `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh event id
func NewEvent(eventType shared.EventType, bookingID uuid.UUID, correlationID string, data interface{}, now time.Time) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event data: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.New(),
		Type:          eventType,
		BookingID:     bookingID,
		OccurredAt:    now,
		CorrelationID: correlationID,
		Data:          raw,
	}, nil
}

// Message stores an event for reliable publishing after the business transaction commits
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	BookingID     uuid.UUID           `json:"booking_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage serialises the event into a pending outbox message
func NewMessage(event *Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.ID,
		BookingID: event.BookingID,
		EventType: event.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: event.OccurredAt,
	}, nil
}

// GetEvent extracts the event envelope from the payload
func (m *Message) GetEvent() (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
