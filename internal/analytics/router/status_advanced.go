package router

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

type statusAdvancedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newStatusAdvancedHandler(writer Writer, logg *logger.Logger) Handler {
	return &statusAdvancedHandler{writer: writer, logg: logg}
}

func (h *statusAdvancedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderStatusAdvancedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"to_status":  event.ToStatus,
	})

	row, err := baseRow(envelope, event.OrderID.String(), "", event.AdvancedAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.StaffID = stringPtr(event.StaffID.String())
	row.FromStatus = stringPtr(string(event.FromStatus))
	row.ToStatus = stringPtr(string(event.ToStatus))

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}
	h.logg.Info(logCtx, "status transition fact inserted")
	return nil
}
