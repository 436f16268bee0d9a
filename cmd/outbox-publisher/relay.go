package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

// topicPublisher is the slice of a Pub/Sub publisher the relay drives.
// Messages sharing an ordering key stay in commit order; after a failed
// publish the key is paused until ResumePublish.
type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) topicPublisher

// outcome is what happened to one outbox row in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

func (o outcome) String() string {
	switch o {
	case outcomePublished:
		return "published"
	case outcomeRetry:
		return "retried"
	default:
		return "dead_lettered"
	}
}

// batchStats summarizes a drained batch for the log line.
type batchStats struct {
	published int
	retried   int
	dead      int
}

func (b batchStats) total() int { return b.published + b.retried + b.dead }

type RelayParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	PubSub        pubSubClient
	Repository    outboxRepository
	DLQRepository dlqRepository
	Registry      eventResolver
	Publishers    publisherFactory
	Metrics       *metrics.OutboxMetrics
}

// Relay moves committed outbox rows onto the domain topic. Each row is marked
// published, retried, or dead-lettered in the same transaction that locked it.
type Relay struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	dlq          dlqRepository
	registry     eventResolver
	publishers   publisherFactory
	cache        map[string]topicPublisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	jitter       *rand.Rand
	now          func() time.Time
	metrics      *metrics.OutboxMetrics
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	publishers := params.Publishers
	if publishers == nil {
		publishers = orderedPublishers(params.PubSub)
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := time.Duration(cfg.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		registry:     params.Registry,
		publishers:   publishers,
		cache:        map[string]topicPublisher{},
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: poll,
		jitter:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          func() time.Time { return time.Now().UTC() },
		metrics:      params.Metrics,
	}, nil
}

// Run pings its dependencies, then drains batches until ctx ends. A batch
// that settled rows is followed immediately by the next; an empty one waits a
// poll interval. Errors and retried rows back off up to maxIdleBackoff.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.db.Ping,
		"pubsub":   r.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay context canceled")
			return err
		}

		stats, err := r.drainBatch(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case stats.retried > 0:
			wait = min(wait*2, maxIdleBackoff)
		case stats.total() > 0:
			wait = r.pollInterval
			continue
		default:
			wait = r.pollInterval
		}

		if err := r.sleep(ctx, wait+r.jitterFor()); err != nil {
			return err
		}
	}
}

// drainBatch locks up to batchSize pending rows and settles each of them.
func (r *Relay) drainBatch(ctx context.Context) (batchStats, error) {
	var (
		stats   batchStats
		settled []models.OutboxEvent
		results []outcome
	)
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats, settled, results = batchStats{}, settled[:0], results[:0]
		events, err := r.repo.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, event := range events {
			result, err := r.settle(ctx, tx, event)
			if err != nil {
				return err
			}
			settled = append(settled, event)
			results = append(results, result)
			switch result {
			case outcomePublished:
				stats.published++
			case outcomeRetry:
				stats.retried++
			case outcomeDead:
				stats.dead++
			}
		}
		return nil
	})
	if err == nil {
		now := r.now()
		for i, event := range settled {
			r.metrics.Settled(string(event.EventType), results[i].String(), now.Sub(event.CreatedAt))
		}
	}
	if err == nil && stats.total() > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"published":     stats.published,
			"retried":       stats.retried,
			"dead_lettered": stats.dead,
		}), "outbox batch settled")
	}
	return stats, err
}

// settle publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures become retries or DLQ entries.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return outcomeDead, r.deadLetter(ctx, tx, event, nil, enums.OutboxDLQReasonNonRetryable, err)
	}

	fields := logFields(event, resolved)
	pubErr := r.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := r.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.logg.Debug(r.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	if errors.Is(pubErr, registry.ErrPermanent) {
		return outcomeDead, r.deadLetter(ctx, tx, event, fields, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if event.AttemptCount+1 >= r.maxAttempts {
		return outcomeDead, r.deadLetter(ctx, tx, event, fields, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	fields["attempt_count"] = event.AttemptCount + 1
	fields["error"] = pubErr.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed")
	if err := r.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, fields map[string]any, reason enums.OutboxDLQErrorReason, cause error) error {
	if fields == nil {
		fields = logFields(event, nil)
	}
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      r.now(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := r.repo.MarkTerminalTx(tx, event.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// publish sends the stored envelope unchanged. The aggregate id is the
// ordering key so one order's status events reach consumers in sequence.
func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := r.publisherFor(topic)
	if pub == nil {
		return registry.Permanent("publisher not configured for topic %s", topic)
	}

	key := event.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes:  messageAttributes(event, resolved.Envelope),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.Permanent("publisher returned nil for topic %s", topic)
	}
	if _, err := result.Get(publishCtx); err != nil {
		pub.ResumePublish(key)
		return err
	}
	return nil
}

func (r *Relay) publisherFor(topic string) topicPublisher {
	if pub, ok := r.cache[topic]; ok {
		return pub
	}
	pub := r.publishers(topic)
	if pub != nil {
		r.cache[topic] = pub
	}
	return pub
}

func (r *Relay) jitterFor() time.Duration {
	return time.Duration(r.jitter.Int63n(int64(jitterWindow)))
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// messageAttributes are what the analytics worker routes on without decoding
// the body.
func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if attrs["event_id"] == "" {
		attrs["event_id"] = event.ID.String()
	}
	if envelope.Actor != nil {
		attrs["actor_role"] = string(envelope.Actor.Role)
	}
	return attrs
}

func logFields(event models.OutboxEvent, resolved *registry.Resolved) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Route.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// orderedPublishers opens topic publishers with message ordering enabled.
func orderedPublishers(client pubSubClient) publisherFactory {
	return func(topic string) topicPublisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		p.EnableMessageOrdering = true
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) ResumePublish(orderingKey string) {
	g.p.ResumePublish(orderingKey)
}
