// Package worker consumes domain events from Pub/Sub and hands each one to
// the analytics router exactly once per event id.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/router"
	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/idempotency"
)

const consumerName = "analytics"

// Handler receives decoded envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (idempotency.Claim, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// receiver is satisfied by *gcppubsub.Subscriber.
type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// outcome is how a delivery was settled. Only retry nacks.
type outcome string

const (
	outcomeHandled   outcome = "handled"
	outcomeSkipped   outcome = "skipped"
	outcomeDuplicate outcome = "duplicate"
	outcomeDropped   outcome = "dropped"
	outcomeRetry     outcome = "retry"
)

func (o outcome) nack() bool { return o == outcomeRetry }

// Params wires a Service.
type Params struct {
	Subscriber receiver
	Handler    Handler
	Claims     claimer
	Logger     *logger.Logger
	Metrics    *metrics.ConsumerMetrics
}

// Service claims each event id in Redis before handling so concurrent
// redeliveries do not double-write.
type Service struct {
	sub     receiver
	handler Handler
	claims  claimer
	logg    *logger.Logger
	metrics *metrics.ConsumerMetrics
}

func NewService(p Params) (*Service, error) {
	switch {
	case p.Subscriber == nil:
		return nil, errors.New("analytics subscription is required")
	case p.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case p.Claims == nil:
		return nil, errors.New("idempotency claims are required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{sub: p.Subscriber, handler: p.Handler, claims: p.Claims, logg: p.Logger, metrics: p.Metrics}, nil
}

// Run consumes until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.sub.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg).nack() {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) (result outcome) {
	start := time.Now()
	eventType := msg.Attributes["event_type"]
	defer func() {
		s.metrics.Observe(consumerName, eventType, string(result), time.Since(start))
	}()

	ctx = s.logg.WithField(ctx, "message_id", msg.ID)
	envelope, err := decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.envelope_invalid")
		return outcomeDropped
	}
	eventType = string(envelope.EventType)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
		"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(ctx, "analytics.event_id_invalid")
		return outcomeDropped
	}

	claim, err := s.claims.Claim(ctx, consumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "analytics.claim_failed", err)
		return outcomeRetry
	}
	switch claim {
	case idempotency.Done:
		s.logg.Info(ctx, "analytics.duplicate")
		return outcomeDuplicate
	case idempotency.InFlight:
		s.logg.Debug(ctx, "analytics.claimed_elsewhere")
		return outcomeRetry
	}

	result = outcomeHandled
	if err := s.handler.Handle(ctx, *envelope); err != nil {
		if !errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Error(ctx, "analytics.handle_failed", err)
			if relErr := s.claims.Release(ctx, consumerName, eventID); relErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "analytics.release_failed")
			}
			return outcomeRetry
		}
		result = outcomeSkipped
	}

	// Rows carry insert ids, so a redelivery after a lost completion is
	// absorbed by BigQuery.
	if err := s.claims.Complete(ctx, consumerName, eventID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.complete_failed")
	}
	s.logg.Info(ctx, "analytics."+string(result))
	return result
}

// decodeMessage reads the outbox envelope, letting message attributes
// override the body for routing fields.
func decodeMessage(msg *gcppubsub.Message) (*types.Envelope, error) {
	var body outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(name string) string { return strings.TrimSpace(msg.Attributes[name]) }

	eventType, err := enums.ParseOutboxEventType(pick(attr("event_type"), string(body.EventType)))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(pick(attr("aggregate_type"), string(body.AggregateType)))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}

	var bodyAggregate string
	if body.AggregateID != uuid.Nil {
		bodyAggregate = body.AggregateID.String()
	}
	aggregateID := pick(attr("aggregate_id"), bodyAggregate)
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}
	eventID := pick(body.EventID, attr("event_id"))
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	occurredAt := body.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	env := &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Version:       body.Version,
		Payload:       body.Data,
	}
	if body.Actor != nil && body.Actor.UserID != uuid.Nil {
		env.ActorID = body.Actor.UserID.String()
	}
	return env, nil
}

// pick returns the first non-blank value.
func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
