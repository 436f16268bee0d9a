package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers fulfillment facts produced by the handlers.
type Writer interface {
	InsertFulfillment(ctx context.Context, rows ...types.FulfillmentFactRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches envelopes to the handler registered for their event type.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
	decoders *registry.Decoders
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventOrderPlaced:         newOrderPlacedHandler(writer, logg),
		enums.EventOrderStatusAdvanced: newStatusAdvancedHandler(writer, logg),
		enums.EventOrderDelivered:      newOrderDeliveredHandler(writer, logg),
		enums.EventSellerOrderDecided:  newSellerDecisionHandler(writer, logg),
	}
	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		handlers: handlers,
		decoders: registry.DomainDecoders(),
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload, err := r.decoders.Decode(envelope.EventType, envelope.Version, envelope.Payload)
	if err != nil {
		return err
	}
	return handler.Handle(ctx, envelope, payload)
}
