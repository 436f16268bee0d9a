package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
)

var retentionNow = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func TestOutboxRetentionPrunesUntilShortBatch(t *testing.T) {
	events := &fakePruner{batches: []int64{3, 3, 1}}
	job := newRetentionJob(t, events, &fakeDeadLetterPruner{}, 3)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 3, events.calls)
	assert.Equal(t, retentionNow.Add(-defaultOutboxRetention), events.cutoff)
	assert.Equal(t, 10, events.terminalAttempts)
}

func TestOutboxRetentionStopsAtBatchCap(t *testing.T) {
	events := &fakePruner{always: 2}
	job := newRetentionJob(t, events, &fakeDeadLetterPruner{}, 2)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, maxPruneBatches, events.calls)
}

func TestOutboxRetentionPrunesDeadLettersEvenWhenEventsFail(t *testing.T) {
	events := &fakePruner{err: errors.New("lock timeout")}
	dlq := &fakeDeadLetterPruner{err: errors.New("dlq unavailable")}
	job := newRetentionJob(t, events, dlq, 10)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "lock timeout")
	assert.ErrorContains(t, err, "dlq unavailable")
	assert.Equal(t, 1, dlq.calls)
	assert.Equal(t, retentionNow.Add(-defaultDLQRetention), dlq.cutoff)
}

func TestNewOutboxRetentionJobRequiresTerminalAttempts(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.Nop(),
		Events:      &fakePruner{},
		DeadLetters: &fakeDeadLetterPruner{},
	})
	assert.Error(t, err)
}

func TestOutboxRetentionAgainstDatabase(t *testing.T) {
	db := dbtest.Open(t)
	old := retentionNow.Add(-20 * 24 * time.Hour)
	recent := retentionNow.Add(-24 * time.Hour)
	published := old.Add(time.Minute)

	rows := map[string]models.OutboxEvent{
		"old published": {CreatedAt: old, PublishedAt: &published},
		"old parked":    {CreatedAt: old, AttemptCount: 10},
		"old pending":   {CreatedAt: old, AttemptCount: 3},
		"new published": {CreatedAt: recent, PublishedAt: &published},
	}
	ids := map[string]uuid.UUID{}
	for name, row := range rows {
		row.ID = uuid.New()
		row.EventType = enums.EventOrderDelivered
		row.AggregateType = enums.AggregateOrder
		row.AggregateID = uuid.New()
		row.Payload = json.RawMessage(`{}`)
		require.NoError(t, db.Create(&row).Error, name)
		ids[name] = row.ID
	}
	require.NoError(t, db.Create(&models.OutboxDLQ{
		EventID: uuid.New(), EventType: enums.EventOrderDelivered, AggregateType: enums.AggregateOrder,
		AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), ErrorReason: enums.OutboxDLQReasonMaxAttempts,
		FailedAt: retentionNow.Add(-40 * 24 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.OutboxDLQ{
		EventID: uuid.New(), EventType: enums.EventOrderDelivered, AggregateType: enums.AggregateOrder,
		AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), ErrorReason: enums.OutboxDLQReasonMaxAttempts,
		FailedAt: recent,
	}).Error)

	job := newRetentionJob(t, outbox.NewRepository(db), outbox.NewDLQRepository(db), 1)
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	left := map[uuid.UUID]bool{}
	for _, row := range remaining {
		left[row.ID] = true
	}
	assert.False(t, left[ids["old published"]])
	assert.False(t, left[ids["old parked"]])
	assert.True(t, left[ids["old pending"]])
	assert.True(t, left[ids["new published"]])

	var dlqCount int64
	require.NoError(t, db.Model(&models.OutboxDLQ{}).Count(&dlqCount).Error)
	assert.Equal(t, int64(1), dlqCount)
}

func newRetentionJob(t *testing.T, events outboxPruner, dlq deadLetterPruner, batch int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:           logger.Nop(),
		Events:           events,
		DeadLetters:      dlq,
		TerminalAttempts: 10,
		BatchSize:        batch,
	})
	require.NoError(t, err)
	concrete := job.(*outboxRetentionJob)
	concrete.now = func() time.Time { return retentionNow }
	return concrete
}

type fakePruner struct {
	batches          []int64
	always           int64
	err              error
	calls            int
	cutoff           time.Time
	terminalAttempts int
}

func (f *fakePruner) PruneBatch(_ context.Context, cutoff time.Time, terminalAttempts, _ int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.terminalAttempts = terminalAttempts
	if f.err != nil {
		return 0, f.err
	}
	if f.always > 0 {
		return f.always, nil
	}
	if f.calls <= len(f.batches) {
		return f.batches[f.calls-1], nil
	}
	return 0, nil
}

type fakeDeadLetterPruner struct {
	err    error
	calls  int
	cutoff time.Time
}

func (f *fakeDeadLetterPruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 0, f.err
}
