package router

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

type orderDeliveredHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderDeliveredHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderDeliveredHandler{writer: writer, logg: logg}
}

func (h *orderDeliveredHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderDeliveredEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"staff_id":     event.StaffID,
		"staff_credit": event.StaffCredit.StringFixed(2),
	})

	row, err := baseRow(envelope, event.OrderID.String(), "", event.DeliveredAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	items := 0
	for _, line := range event.SellerLines {
		items += line.Quantity
	}
	for _, line := range event.PlatformLines {
		items += line.Quantity
	}
	row.UserID = stringPtr(event.UserID.String())
	row.SellerID = uuidPtr(event.SellerID)
	row.StaffID = stringPtr(event.StaffID.String())
	row.ToStatus = stringPtr(string(enums.OrderStatusDelivered))
	row.ItemCount = int64Ptr(int64(items))
	row.TotalPaise = paisePtr(event.OrderTotal)
	row.StaffCreditPaise = paisePtr(event.StaffCredit)

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}
	h.logg.Info(logCtx, "delivery fact inserted")
	return nil
}
