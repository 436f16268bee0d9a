package geography

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

// Service resolves the customer-facing godowns that serve a ward.
type Service interface {
	Resolve(ctx context.Context, localBodyID *uuid.UUID, wardNumber *int) ([]uuid.UUID, error)
	ResolveForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the geography resolver.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("geography repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// Resolve returns micro godowns bound to the exact ward followed by area
// godowns bound to the whole local body. Local godowns never qualify. An
// unknown region or ward yields an empty result rather than a fallback. Ward
// numbers start at 1; zero or below means no ward on file.
func (s *service) Resolve(ctx context.Context, localBodyID *uuid.UUID, wardNumber *int) ([]uuid.UUID, error) {
	if localBodyID == nil || *localBodyID == uuid.Nil || wardNumber == nil || *wardNumber <= 0 {
		return []uuid.UUID{}, nil
	}

	micro, err := s.repo.MicroGodownIDs(ctx, *localBodyID, *wardNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup micro godowns")
	}
	area, err := s.repo.AreaGodownIDs(ctx, *localBodyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup area godowns")
	}

	ids := union(micro, area)
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"local_body_id": localBodyID.String(),
		"ward_number":   *wardNumber,
		"godown_count":  len(ids),
	}), "godowns resolved")
	return ids, nil
}

func (s *service) ResolveForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return []uuid.UUID{}, nil
	}
	return s.Resolve(ctx, profile.LocalBodyID, profile.WardNumber)
}

// union keeps first-seen order and drops duplicates.
func union(lists ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
