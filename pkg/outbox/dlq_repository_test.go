package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
)

func deadLetter(t *testing.T, db *gorm.DB, repo *outbox.DLQRepository, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, failedAt time.Time, msg string) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      failedAt,
		})
	}))
}

func parkedEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	lastErr := "publish timeout"
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		AttemptCount:  10,
		LastError:     &lastErr,
	}
}

func TestDLQInsertTruncatesErrorOnRuneBoundary(t *testing.T) {
	db := dbtest.Open(t)
	repo := outbox.NewDLQRepository(db)
	event := parkedEvent(enums.EventOrderDelivered)

	deadLetter(t, db, repo, event, enums.OutboxDLQReasonNonRetryable, time.Now().UTC(), strings.Repeat("അ", 600))

	rows, err := repo.Recent(context.Background(), outbox.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.LessOrEqual(t, len(*rows[0].ErrorMessage), 1024)
	assert.True(t, strings.HasSuffix(*rows[0].ErrorMessage, "അ"))
}

func TestDLQRecentFiltersAndOrders(t *testing.T) {
	db := dbtest.Open(t)
	repo := outbox.NewDLQRepository(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	older := parkedEvent(enums.EventOrderDelivered)
	newer := parkedEvent(enums.EventOrderDelivered)
	other := parkedEvent(enums.EventSellerOrderDecided)
	deadLetter(t, db, repo, older, enums.OutboxDLQReasonMaxAttempts, base, "a")
	deadLetter(t, db, repo, newer, enums.OutboxDLQReasonMaxAttempts, base.Add(time.Hour), "b")
	deadLetter(t, db, repo, other, enums.OutboxDLQReasonNonRetryable, base.Add(2*time.Hour), "c")

	rows, err := repo.Recent(context.Background(), outbox.DLQFilter{EventType: enums.EventOrderDelivered})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].EventID)
	assert.Equal(t, older.ID, rows[1].EventID)

	rows, err = repo.Recent(context.Background(), outbox.DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, rows[0].EventID)

	rows, err = repo.Recent(context.Background(), outbox.DLQFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, rows[0].EventID)
}

func TestDLQRedriveResetsParkedEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := outbox.NewDLQRepository(db)
	event := parkedEvent(enums.EventOrderDelivered)
	require.NoError(t, db.Create(&event).Error)
	deadLetter(t, db, repo, event, enums.OutboxDLQReasonMaxAttempts, time.Now().UTC(), "publish timeout")

	require.NoError(t, repo.Redrive(context.Background(), event.ID))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 0, stored.AttemptCount)
	assert.Nil(t, stored.LastError)
	assert.Nil(t, stored.PublishedAt)

	rows, err := repo.Recent(context.Background(), outbox.DLQFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQRedriveRestoresPrunedEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := outbox.NewDLQRepository(db)
	event := parkedEvent(enums.EventSellerOrderDecided)
	deadLetter(t, db, repo, event, enums.OutboxDLQReasonNonRetryable, time.Now().UTC(), "bad payload")

	require.NoError(t, repo.Redrive(context.Background(), event.ID))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, event.EventType, stored.EventType)
	assert.Equal(t, event.AggregateID, stored.AggregateID)
	assert.JSONEq(t, string(event.Payload), string(stored.Payload))
	assert.Equal(t, 0, stored.AttemptCount)
}

func TestDLQRedriveUnknownEvent(t *testing.T) {
	repo := outbox.NewDLQRepository(dbtest.Open(t))
	err := repo.Redrive(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, outbox.ErrDeadLetterNotFound))
}
