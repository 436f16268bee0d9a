package cron

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"

	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

// OutboxRetentionJobName prunes delivered and dead outbox rows.
const OutboxRetentionJobName = "outbox-retention"

const (
	defaultOutboxRetention = 14 * 24 * time.Hour
	defaultDLQRetention    = 30 * 24 * time.Hour
	defaultPruneBatch      = 500
	// bounds one run so a backlog is worked off over several cycles
	maxPruneBatches = 200
)

type outboxPruner interface {
	PruneBatch(ctx context.Context, cutoff time.Time, terminalAttempts, limit int) (int64, error)
}

type deadLetterPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	Events           outboxPruner
	DeadLetters      deadLetterPruner
	Retention        time.Duration
	DLQRetention     time.Duration
	TerminalAttempts int
	BatchSize        int
}

type outboxRetentionJob struct {
	logg             *logger.Logger
	events           outboxPruner
	deadLetters      deadLetterPruner
	retention        time.Duration
	dlqRetention     time.Duration
	terminalAttempts int
	batchSize        int
	now              func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Events == nil:
		return nil, errors.New("outbox pruner required")
	case params.DeadLetters == nil:
		return nil, errors.New("dead letter pruner required")
	case params.TerminalAttempts <= 0:
		return nil, errors.New("terminal attempt count required")
	}
	j := &outboxRetentionJob{
		logg:             params.Logger,
		events:           params.Events,
		deadLetters:      params.DeadLetters,
		retention:        params.Retention,
		dlqRetention:     params.DLQRetention,
		terminalAttempts: params.TerminalAttempts,
		batchSize:        params.BatchSize,
		now:              time.Now,
	}
	if j.retention <= 0 {
		j.retention = defaultOutboxRetention
	}
	if j.dlqRetention <= 0 {
		j.dlqRetention = defaultDLQRetention
	}
	if j.batchSize <= 0 {
		j.batchSize = defaultPruneBatch
	}
	return j, nil
}

func (j *outboxRetentionJob) Name() string { return OutboxRetentionJobName }

// Run prunes events in batches so no single statement holds locks on a large
// slice of the table, then drops expired dead letters. Both halves run even
// when the other fails.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	events, batches, eventErr := j.pruneEvents(ctx, eventCutoff)
	deadLetters, dlqErr := j.deadLetters.PruneBefore(ctx, dlqCutoff)

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":         eventCutoff,
		"dlq_cutoff":           dlqCutoff,
		"events_deleted":       events,
		"batches":              batches,
		"dead_letters_deleted": deadLetters,
	}), "outbox retention pass complete")

	return multierr.Combine(eventErr, dlqErr)
}

func (j *outboxRetentionJob) pruneEvents(ctx context.Context, cutoff time.Time) (total int64, batches int, err error) {
	for batches < maxPruneBatches {
		if err := ctx.Err(); err != nil {
			return total, batches, err
		}
		n, err := j.events.PruneBatch(ctx, cutoff, j.terminalAttempts, j.batchSize)
		if err != nil {
			return total, batches, err
		}
		batches++
		total += n
		if n < int64(j.batchSize) {
			break
		}
	}
	return total, batches, nil
}
