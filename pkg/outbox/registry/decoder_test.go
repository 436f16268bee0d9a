package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

func TestDomainDecodersDecodeTypedPayload(t *testing.T) {
	d := DomainDecoders()

	input := json.RawMessage(`{"status":"seller_declined","reason":"out of stock"}`)
	output, err := d.Decode(enums.EventSellerOrderDecided, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, ok := output.(*payloads.SellerOrderDecidedEvent)
	if !ok || decoded.Status != enums.OrderStatusSellerDeclined || decoded.Reason != "out of stock" {
		t.Fatalf("unexpected output %#v", output)
	}
}

func TestDecodersTreatVersionZeroAsOne(t *testing.T) {
	d := DomainDecoders()
	if !d.Supports(enums.EventOrderDelivered, 0) {
		t.Fatal("expected unversioned rows to use v1")
	}
	if _, err := d.Decode(enums.EventOrderDelivered, 0, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodersRejectUnknownAndEmpty(t *testing.T) {
	d := NewDecoders()
	Register[payloads.StockLowDetectedEvent](d, enums.EventStockLowDetected, 1)

	if _, err := d.Decode(enums.EventStockLowDetected, 2, json.RawMessage(`{}`)); !errors.Is(err, ErrNoDecoder) {
		t.Fatalf("expected ErrNoDecoder for unregistered version, got %v", err)
	}
	if _, err := d.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`{}`)); !errors.Is(err, ErrNoDecoder) {
		t.Fatalf("expected ErrNoDecoder for unregistered type, got %v", err)
	}
	for _, raw := range []string{"", "  ", "null"} {
		if _, err := d.Decode(enums.EventStockLowDetected, 1, json.RawMessage(raw)); !errors.Is(err, ErrEmptyPayload) {
			t.Fatalf("payload %q: expected ErrEmptyPayload, got %v", raw, err)
		}
	}
	if _, err := d.Decode(enums.EventStockLowDetected, 1, json.RawMessage(`{"product_id":`)); err == nil {
		t.Fatal("expected malformed payload error")
	}
}
