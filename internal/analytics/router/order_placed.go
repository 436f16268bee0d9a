package router

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

type orderPlacedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPlacedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPlacedHandler{writer: writer, logg: logg}
}

// Handle writes one row per order the checkout was split into.
func (h *orderPlacedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPlacedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":        envelope.EventType,
		"checkout_group_id": event.CheckoutGroupID,
		"order_count":       len(event.Orders),
	})
	if len(event.Orders) == 0 {
		h.logg.Warn(logCtx, "order placed event without orders")
		return nil
	}

	rows := make([]types.FulfillmentFactRow, 0, len(event.Orders))
	for _, order := range event.Orders {
		row, err := baseRow(envelope, order.OrderID.String(), order.OrderID.String(), envelope.OccurredAt, order)
		if err != nil {
			h.logg.Error(logCtx, "failed to build fulfillment row", err)
			return err
		}
		row.CheckoutGroupID = stringPtr(event.CheckoutGroupID.String())
		row.UserID = stringPtr(event.UserID.String())
		row.SellerID = uuidPtr(order.SellerID)
		row.ToStatus = stringPtr(string(order.Status))
		row.PaymentMethod = stringPtr(string(event.PaymentMethod))
		row.ItemCount = int64Ptr(int64(order.ItemCount))
		row.SubtotalPaise = paisePtr(order.Subtotal)
		row.TotalPaise = paisePtr(order.Total)
		rows = append(rows, row)
	}

	if err := h.writer.InsertFulfillment(logCtx, rows...); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment rows", err)
		return err
	}
	h.logg.Info(logCtx, "order placed facts inserted")
	return nil
}
