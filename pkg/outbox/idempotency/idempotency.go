package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/redis"
)

const (
	markerProcessing = "processing"
	markerDone       = "done"
)

// Claim is the state a consumer finds an event in.
type Claim int

const (
	// Acquired means this consumer now owns the event until the lease expires.
	Acquired Claim = iota
	// InFlight means another delivery holds the lease.
	InFlight
	// Done means a previous delivery finished the event.
	Done
)

func (c Claim) String() string {
	switch c {
	case Acquired:
		return "acquired"
	case InFlight:
		return "in_flight"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("claim(%d)", int(c))
	}
}

// Manager guards Pub/Sub consumers against redelivery. A delivery first takes
// a short lease; finishing turns the lease into a long-lived done marker and
// failing drops it so the next delivery can retry. A worker that dies mid
// event loses its lease after the lease TTL.
//
// Keys: pk:idempotency:evt:<consumer>:<event_id>
type Manager struct {
	store   redis.IdempotencyStore
	doneTTL time.Duration
	lease   time.Duration
}

func NewManager(store redis.IdempotencyStore, doneTTL, lease time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case doneTTL <= 0:
		return nil, errors.New("done ttl must be positive")
	case lease <= 0:
		return nil, errors.New("lease must be positive")
	case lease > doneTTL:
		return nil, errors.New("lease must not outlive the done marker")
	}
	return &Manager{store: store, doneTTL: doneTTL, lease: lease}, nil
}

// Claim tries to take the lease for eventID.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (Claim, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return InFlight, err
	}
	ok, err := m.store.SetNX(ctx, key, markerProcessing, m.lease)
	if err != nil {
		return InFlight, fmt.Errorf("claim %s: %w", eventID, err)
	}
	if ok {
		return Acquired, nil
	}

	current, err := m.store.Get(ctx, key)
	switch {
	case redis.IsNil(err):
		// lease expired between the two calls; the redelivery claims it
		return InFlight, nil
	case err != nil:
		return InFlight, fmt.Errorf("read claim %s: %w", eventID, err)
	case current == markerDone:
		return Done, nil
	default:
		return InFlight, nil
	}
}

// Complete records eventID as finished.
func (m *Manager) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, markerDone, m.doneTTL)
}

// Release gives the lease back after a failed attempt.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
