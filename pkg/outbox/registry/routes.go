package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
)

// ErrPermanent marks a row that can never be published as stored. The relay
// dead-letters it on the first attempt.
var ErrPermanent = errors.New("outbox row is not publishable")

// Permanent wraps a formatted cause with ErrPermanent.
func Permanent(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrPermanent, fmt.Errorf(format, args...))
}

// aggregates pins every published event type to the aggregate it is keyed on.
var aggregates = map[enums.OutboxEventType]enums.OutboxAggregateType{
	enums.EventOrderPlaced:           enums.AggregateCheckoutGroup,
	enums.EventOrderStatusAdvanced:   enums.AggregateOrder,
	enums.EventOrderDelivered:        enums.AggregateOrder,
	enums.EventSellerOrderDecided:    enums.AggregateOrder,
	enums.EventDeliveryStaffAssigned: enums.AggregateOrder,
	enums.EventStockPurchased:        enums.AggregatePurchase,
	enums.EventStockLowDetected:      enums.AggregateProduct,
}

// Route is where one event type is published.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// Resolved is an outbox row that passed validation, with its typed payload.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry validates outbox rows against the known routes.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *Decoders
}

// NewEventRegistry routes every domain event to the configured domain topic.
// Consumers filter on the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	routes := make(map[enums.OutboxEventType]Route, len(aggregates))
	for eventType, aggregate := range aggregates {
		routes[eventType] = Route{EventType: eventType, AggregateType: aggregate, Topic: cfg.DomainTopic}
	}
	return &EventRegistry{routes: routes, decoders: DomainDecoders()}, nil
}

// Route returns the route for eventType.
func (r *EventRegistry) Route(eventType enums.OutboxEventType) (Route, bool) {
	route, ok := r.routes[eventType]
	return route, ok
}

// Resolve checks the row columns against its route and decodes the stored
// envelope. Every failure wraps ErrPermanent.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent("unsupported event type %s", event.EventType)
	case route.AggregateType != event.AggregateType:
		return nil, Permanent("event %s belongs to %s, row says %s", event.EventType, route.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, Permanent("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanent("decode envelope: %w", err)
	}
	if envelope.EventType != "" && envelope.EventType != event.EventType {
		return nil, Permanent("envelope carries %s, row carries %s", envelope.EventType, event.EventType)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, Permanent("%w", err)
	}
	return &Resolved{Route: route, Envelope: envelope, Payload: payload}, nil
}
