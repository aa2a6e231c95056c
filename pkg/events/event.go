package events

import "time"

// TypeChatInteraction is published once per completed chat turn.
const TypeChatInteraction = "chat.interaction"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event, also used as the NATS subject suffix.
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewChatInteraction(sessionID, query, agent string, responseLength int, fallback bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeChatInteraction,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"query":           query,
			"agent":           agent,
			"response_length": responseLength,
			"fallback":        fallback,
		},
		OccurredAt: at,
	}
}
