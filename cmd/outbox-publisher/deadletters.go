package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
)

type deadLetterStore interface {
	Recent(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Redrive(ctx context.Context, eventID uuid.UUID) error
}

type deadLetterView struct {
	EventID      uuid.UUID                  `json:"event_id"`
	EventType    enums.OutboxEventType      `json:"event_type"`
	AggregateID  uuid.UUID                  `json:"aggregate_id"`
	Reason       enums.OutboxDLQErrorReason `json:"reason"`
	Error        string                     `json:"error,omitempty"`
	AttemptCount int                        `json:"attempt_count"`
	FailedAt     time.Time                  `json:"failed_at"`
}

// listDeadLetters prints parked events as a JSON array.
func listDeadLetters(ctx context.Context, store deadLetterStore, filter outbox.DLQFilter, out io.Writer) error {
	rows, err := store.Recent(ctx, filter)
	if err != nil {
		return fmt.Errorf("list dead letters: %w", err)
	}
	views := make([]deadLetterView, 0, len(rows))
	for _, row := range rows {
		view := deadLetterView{
			EventID:      row.EventID,
			EventType:    row.EventType,
			AggregateID:  row.AggregateID,
			Reason:       row.ErrorReason,
			AttemptCount: row.AttemptCount,
			FailedAt:     row.FailedAt.UTC(),
		}
		if row.ErrorMessage != nil {
			view.Error = *row.ErrorMessage
		}
		views = append(views, view)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// redriveDeadLetter puts one parked event back in the publish queue.
func redriveDeadLetter(ctx context.Context, store deadLetterStore, rawID string, out io.Writer) error {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("event id %q: %w", rawID, err)
	}
	if err := store.Redrive(ctx, eventID); err != nil {
		return fmt.Errorf("redrive %s: %w", eventID, err)
	}
	_, err = fmt.Fprintf(out, "requeued %s\n", eventID)
	return err
}
