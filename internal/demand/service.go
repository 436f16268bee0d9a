package demand

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

// Snapshot is demand over the sampled window.
type Snapshot struct {
	SampledOrders int
	Stats         map[uuid.UUID]Stat
}

// For returns the stat of a product, zero valued when it was never ordered.
func (s Snapshot) For(productID uuid.UUID) Stat {
	if stat, ok := s.Stats[productID]; ok {
		return stat
	}
	return Stat{ProductID: productID}
}

// Service estimates demand from recent orders.
type Service interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type service struct {
	repo   Repository
	window int
}

// NewService builds the estimator. A non-positive window uses DefaultWindow.
func NewService(repo Repository, window int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("demand repository required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{repo: repo, window: window}, nil
}

func (s *service) Snapshot(ctx context.Context) (Snapshot, error) {
	orders, err := s.repo.RecentOrders(ctx, s.window)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent orders")
	}
	return Snapshot{SampledOrders: len(orders), Stats: Estimate(orders)}, nil
}
