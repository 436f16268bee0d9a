package godowns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateGodownInput is the admin form for a new warehouse.
type CreateGodownInput struct {
	Name       string
	GodownType enums.GodownType
}

// WardSelection picks wards explicitly or every ward of the local body.
type WardSelection struct {
	All   bool
	Wards []int
}

// Binding is a local body a godown serves, with its wards for micro godowns.
type Binding struct {
	LocalBodyID   uuid.UUID `json:"local_body_id"`
	LocalBodyName string    `json:"local_body_name"`
	Wards         []int     `json:"wards,omitempty"`
	AllWards      bool      `json:"all_wards"`
}

// GodownView is a godown together with its bindings.
type GodownView struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	GodownType enums.GodownType `json:"godown_type"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
	Bindings   []Binding        `json:"bindings"`
}

// Service manages godowns and the regions they serve.
type Service interface {
	CreateGodown(ctx context.Context, input CreateGodownInput) (*models.Godown, error)
	DeleteGodown(ctx context.Context, id uuid.UUID) error
	ListGodowns(ctx context.Context, godownType *enums.GodownType) ([]GodownView, error)
	AssignMicroWards(ctx context.Context, godownID, localBodyID uuid.UUID, selection WardSelection) ([]int, error)
	AssignLocalBodies(ctx context.Context, godownID uuid.UUID, localBodyIDs []uuid.UUID) (int, error)
	RemoveLocalBody(ctx context.Context, godownID, localBodyID uuid.UUID) error
}

type service struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
}

// NewService builds the godown binding service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("godown repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) CreateGodown(ctx context.Context, input CreateGodownInput) (*models.Godown, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "godown name required")
	}
	if !input.GodownType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid godown type %q", input.GodownType)
	}
	godown := &models.Godown{Name: name, GodownType: input.GodownType, IsActive: true}
	if err := s.repo.Create(ctx, godown); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create godown")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"godown_id":   godown.ID.String(),
		"godown_type": godown.GodownType,
	}), "godown created")
	return godown, nil
}

func (s *service) DeleteGodown(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "godown id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return notFoundOr(err, "godown not found", "delete godown")
		}
		return nil
	})
}

func (s *service) ListGodowns(ctx context.Context, godownType *enums.GodownType) ([]GodownView, error) {
	if godownType != nil && !godownType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid godown type %q", *godownType)
	}
	godowns, err := s.repo.List(ctx, godownType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list godowns")
	}
	ids := make([]uuid.UUID, 0, len(godowns))
	for _, g := range godowns {
		ids = append(ids, g.ID)
	}
	bindings, err := s.repo.BindingsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list godown bindings")
	}
	wards, err := s.repo.WardsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list godown wards")
	}
	bodyIDs := make([]uuid.UUID, 0, len(bindings))
	for _, b := range bindings {
		bodyIDs = append(bodyIDs, b.LocalBodyID)
	}
	bodies, err := s.repo.LocalBodiesByID(ctx, bodyIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load local bodies")
	}

	type bindingKey struct{ godown, body uuid.UUID }
	wardsByBinding := make(map[bindingKey][]int)
	for _, w := range wards {
		key := bindingKey{w.GodownID, w.LocalBodyID}
		wardsByBinding[key] = append(wardsByBinding[key], w.WardNumber)
	}
	bindingsByGodown := make(map[uuid.UUID][]Binding)
	for _, b := range bindings {
		view := Binding{
			LocalBodyID:   b.LocalBodyID,
			LocalBodyName: "Unknown",
			Wards:         wardsByBinding[bindingKey{b.GodownID, b.LocalBodyID}],
		}
		if body, ok := bodies[b.LocalBodyID]; ok {
			view.LocalBodyName = body.Name
			view.AllWards = body.WardCount > 0 && len(view.Wards) == body.WardCount
		}
		bindingsByGodown[b.GodownID] = append(bindingsByGodown[b.GodownID], view)
	}

	out := make([]GodownView, 0, len(godowns))
	for _, g := range godowns {
		views := bindingsByGodown[g.ID]
		if views == nil {
			views = []Binding{}
		}
		out = append(out, GodownView{
			ID:         g.ID,
			Name:       g.Name,
			GodownType: g.GodownType,
			IsActive:   g.IsActive,
			CreatedAt:  g.CreatedAt,
			Bindings:   views,
		})
	}
	return out, nil
}

// AssignMicroWards binds a micro godown to a local body and replaces the
// wards it serves there.
func (s *service) AssignMicroWards(ctx context.Context, godownID, localBodyID uuid.UUID, selection WardSelection) ([]int, error) {
	if godownID == uuid.Nil || localBodyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "godown id and local body id required")
	}

	var assigned []int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		godown, err := repo.FindByID(ctx, godownID)
		if err != nil {
			return notFoundOr(err, "godown not found", "load godown")
		}
		if godown.GodownType != enums.GodownTypeMicro {
			return pkgerrors.New(pkgerrors.CodeValidation, "wards can only be assigned to micro godowns")
		}
		body, err := repo.FindLocalBody(ctx, localBodyID)
		if err != nil {
			return notFoundOr(err, "local body not found", "load local body")
		}

		wards, err := normalizeWards(selection, body.WardCount)
		if err != nil {
			return err
		}
		if err := repo.EnsureBinding(ctx, godownID, localBodyID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind local body")
		}
		if err := repo.ReplaceWards(ctx, godownID, localBodyID, wards); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace wards")
		}
		assigned = wards
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"godown_id":     godownID.String(),
		"local_body_id": localBodyID.String(),
		"ward_count":    len(assigned),
	}), "godown wards assigned")
	return assigned, nil
}

// AssignLocalBodies binds an area or local godown to whole local bodies,
// skipping bodies already bound. It returns how many bindings were added.
func (s *service) AssignLocalBodies(ctx context.Context, godownID uuid.UUID, localBodyIDs []uuid.UUID) (int, error) {
	if godownID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "godown id required")
	}
	requested := dedupe(localBodyIDs)
	if len(requested) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "select at least one local body")
	}

	var added int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		godown, err := repo.FindByID(ctx, godownID)
		if err != nil {
			return notFoundOr(err, "godown not found", "load godown")
		}
		if godown.GodownType == enums.GodownTypeMicro {
			return pkgerrors.New(pkgerrors.CodeValidation, "micro godowns are bound through ward assignment")
		}

		known, err := repo.LocalBodiesByID(ctx, requested)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load local bodies")
		}
		for _, id := range requested {
			if _, ok := known[id]; !ok {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown local body %s", id)
			}
		}

		existing, err := repo.BoundLocalBodyIDs(ctx, godownID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bindings")
		}
		bound := make(map[uuid.UUID]struct{}, len(existing))
		for _, id := range existing {
			bound[id] = struct{}{}
		}
		rows := make([]models.GodownLocalBody, 0, len(requested))
		for _, id := range requested {
			if _, ok := bound[id]; ok {
				continue
			}
			rows = append(rows, models.GodownLocalBody{GodownID: godownID, LocalBodyID: id})
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "all selected local bodies are already assigned")
		}
		if err := repo.InsertBindings(ctx, rows); err != nil {
			if pkgdb.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown local body in selection")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert bindings")
		}
		added = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveLocalBody drops a binding and any wards under it.
func (s *service) RemoveLocalBody(ctx context.Context, godownID, localBodyID uuid.UUID) error {
	if godownID == uuid.Nil || localBodyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "godown id and local body id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteWards(ctx, godownID, localBodyID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete wards")
		}
		removed, err := repo.DeleteBinding(ctx, godownID, localBodyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete binding")
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "binding not found")
		}
		return nil
	})
}

// normalizeWards expands "all" and returns a sorted, duplicate-free ward list.
func normalizeWards(selection WardSelection, wardCount int) ([]int, error) {
	var wards []int
	if selection.All {
		for w := 1; w <= wardCount; w++ {
			wards = append(wards, w)
		}
	} else {
		seen := make(map[int]struct{}, len(selection.Wards))
		for _, w := range selection.Wards {
			if w <= 0 || (wardCount > 0 && w > wardCount) {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "ward %d out of range", w)
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			wards = append(wards, w)
		}
		sort.Ints(wards)
	}
	if len(wards) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one ward")
	}
	return wards, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
