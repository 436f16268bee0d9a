package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

var (
	ErrEmptyPayload = errors.New("event payload is empty")
	ErrNoDecoder    = errors.New("no decoder registered")
)

type decodeFunc func(raw json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders turns versioned event payloads into their typed structs. It is
// shared by the relay, which validates rows before publishing, and by
// consumers.
type Decoders struct {
	mu  sync.RWMutex
	fns map[decoderKey]decodeFunc
}

func NewDecoders() *Decoders {
	return &Decoders{fns: make(map[decoderKey]decodeFunc)}
}

// Register binds eventType@version to payload type T; Decode then yields *T.
func Register[T any](d *Decoders, eventType enums.OutboxEventType, version int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fns[decoderKey{eventType: eventType, version: version}] = func(raw json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}

// Supports reports whether eventType@version has a decoder.
func (d *Decoders) Supports(eventType enums.OutboxEventType, version int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.fns[decoderKey{eventType: eventType, version: normalizeVersion(version)}]
	return ok
}

// Decode runs the decoder for eventType@version. Version 0 reads as 1.
func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, raw json.RawMessage) (any, error) {
	version = normalizeVersion(version)
	d.mu.RLock()
	fn, ok := d.fns[decoderKey{eventType: eventType, version: version}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, version)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, eventType)
	}
	out, err := fn(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode %s@v%d payload: %w", eventType, version, err)
	}
	return out, nil
}

func normalizeVersion(version int) int {
	if version <= 0 {
		return 1
	}
	return version
}

// DomainDecoders knows version 1 of every storefront event.
func DomainDecoders() *Decoders {
	d := NewDecoders()
	Register[payloads.OrderPlacedEvent](d, enums.EventOrderPlaced, 1)
	Register[payloads.OrderStatusAdvancedEvent](d, enums.EventOrderStatusAdvanced, 1)
	Register[payloads.OrderDeliveredEvent](d, enums.EventOrderDelivered, 1)
	Register[payloads.SellerOrderDecidedEvent](d, enums.EventSellerOrderDecided, 1)
	Register[payloads.DeliveryStaffAssignedEvent](d, enums.EventDeliveryStaffAssigned, 1)
	Register[payloads.StockPurchasedEvent](d, enums.EventStockPurchased, 1)
	Register[payloads.StockLowDetectedEvent](d, enums.EventStockLowDetected, 1)
	return d
}
