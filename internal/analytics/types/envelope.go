package types

import (
	"encoding/json"
	"time"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Envelope is a domain event as received from Pub/Sub.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	ActorID       string                    `json:"actor_id,omitempty"`
	Version       int                       `json:"version"`
	Payload       json.RawMessage           `json:"payload"`
}
