package router

import (
	"fmt"
	"time"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/internal/analytics/writer"
)

// baseRow fills the columns every fact shares. Rows from a multi-order event
// get a per-order suffix so event_id stays unique in the table.
func baseRow(envelope types.Envelope, orderID string, suffix string, occurredAt time.Time, payload any) (types.FulfillmentFactRow, error) {
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}
	eventID := envelope.EventID
	if suffix != "" {
		eventID = fmt.Sprintf("%s:%s", envelope.EventID, suffix)
	}
	encoded, err := writer.EncodeJSON(payload)
	if err != nil {
		return types.FulfillmentFactRow{}, err
	}
	return types.FulfillmentFactRow{
		EventID:    eventID,
		EventType:  string(envelope.EventType),
		OccurredAt: occurredAt.UTC(),
		OrderID:    orderID,
		Payload:    encoded,
	}, nil
}
