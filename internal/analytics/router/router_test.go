package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/registry"
)

func TestRouterUnsupportedEvent(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil)
	env := types.Envelope{
		EventType: enums.EventStockLowDetected,
		Payload:   []byte(`{"foo":"bar"}`),
	}
	err := router.Handle(context.Background(), env)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestRouterRejectsEmptyPayload(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil)
	env := types.Envelope{EventType: enums.EventOrderDelivered, Payload: []byte("null")}
	if err := router.Handle(context.Background(), env); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestRouterRejectsUnknownPayloadVersion(t *testing.T) {
	handler := &stubHandler{}
	router := newTestRouter(t, &fakeWriter{}, map[enums.OutboxEventType]Handler{
		enums.EventOrderDelivered: handler,
	})
	env := types.Envelope{EventType: enums.EventOrderDelivered, Version: 2, Payload: []byte(`{}`)}
	if err := router.Handle(context.Background(), env); !errors.Is(err, registry.ErrNoDecoder) {
		t.Fatalf("expected ErrNoDecoder, got %v", err)
	}
	if handler.called {
		t.Fatal("handler must not run for an unknown version")
	}
}

func TestRouterRoutesToHandler(t *testing.T) {
	handler := &stubHandler{}
	router := newTestRouter(t, &fakeWriter{}, map[enums.OutboxEventType]Handler{
		enums.EventOrderPlaced: handler,
	})
	payload := payloads.OrderPlacedEvent{
		CheckoutGroupID: uuidFromString(t, "00000000-0000-0000-0000-000000000001"),
		Orders:          []payloads.PlacedOrder{{OrderID: uuidFromString(t, "00000000-0000-0000-0000-000000000002")}},
	}
	data, _ := json.Marshal(payload)
	env := types.Envelope{
		EventType: enums.EventOrderPlaced,
		Payload:   data,
	}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
}

func newTestRouter(t *testing.T, writer Writer, overrides map[enums.OutboxEventType]Handler) *Router {
	t.Helper()
	router, err := NewRouter(writer, logger.Nop(), overrides)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router
}

type stubHandler struct {
	called bool
}

func (s *stubHandler) Handle(context.Context, types.Envelope, any) error {
	s.called = true
	return nil
}

func uuidFromString(t *testing.T, value string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(value)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	return id
}
