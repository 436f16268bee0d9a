package router

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

type sellerDecisionHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSellerDecisionHandler(writer Writer, logg *logger.Logger) Handler {
	return &sellerDecisionHandler{writer: writer, logg: logg}
}

func (h *sellerDecisionHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SellerOrderDecidedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"seller_id":  event.SellerID,
		"status":     event.Status,
	})

	row, err := baseRow(envelope, event.OrderID.String(), "", envelope.OccurredAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	sellerID := event.SellerID
	row.SellerID = uuidPtr(&sellerID)
	row.FromStatus = stringPtr(string(enums.OrderStatusSellerConfirmationPending))
	row.ToStatus = stringPtr(string(event.Status))

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}
	h.logg.Info(logCtx, "seller decision fact inserted")
	return nil
}
