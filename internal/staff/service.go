package staff

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileStore interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.Profile, error)
	SetApproval(ctx context.Context, userID uuid.UUID, approved bool) (bool, error)
}

// LocalBodyWards lists the wards a staff member covers in one local body.
type LocalBodyWards struct {
	LocalBodyID   uuid.UUID `json:"local_body_id"`
	LocalBodyName string    `json:"local_body_name"`
	Wards         []int     `json:"wards"`
}

// Member is a delivery staff profile with its coverage.
type Member struct {
	UserID      uuid.UUID        `json:"user_id"`
	FullName    string           `json:"full_name"`
	IsApproved  bool             `json:"is_approved"`
	Assignments []LocalBodyWards `json:"assignments"`
}

type Service interface {
	ReplaceWardAssignments(ctx context.Context, staffID, localBodyID uuid.UUID, wards []int) ([]LocalBodyWards, error)
	SetApproval(ctx context.Context, staffID uuid.UUID, approved bool) error
	ListAssignments(ctx context.Context, staffID uuid.UUID) ([]LocalBodyWards, error)
	ListStaff(ctx context.Context) ([]Member, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	profiles profileStore
	logg     *logger.Logger
}

func NewService(tx txRunner, repo Repository, profiles profileStore, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, profiles: profiles, logg: logg}, nil
}

// ReplaceWardAssignments swaps the staff member's wards in one local body.
// An empty list removes the local body from their coverage.
func (s *service) ReplaceWardAssignments(ctx context.Context, staffID, localBodyID uuid.UUID, wards []int) ([]LocalBodyWards, error) {
	if err := s.requireStaff(ctx, staffID); err != nil {
		return nil, err
	}
	body, err := s.repo.FindLocalBody(ctx, localBodyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load local body")
	}
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "local body not found")
	}
	normalized, err := normalizeWards(wards, body.WardCount)
	if err != nil {
		return nil, err
	}

	rows := make([]models.StaffWardAssignment, 0, len(normalized))
	for _, ward := range normalized {
		rows = append(rows, models.StaffWardAssignment{StaffUserID: staffID, LocalBodyID: localBodyID, WardNumber: ward})
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAssignments(ctx, staffID, localBodyID); err != nil {
			return err
		}
		return repo.CreateAssignments(ctx, rows)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace ward assignments")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"staff_id":      staffID.String(),
		"local_body_id": localBodyID.String(),
		"ward_count":    len(normalized),
	}), "staff wards replaced")
	return s.ListAssignments(ctx, staffID)
}

func (s *service) SetApproval(ctx context.Context, staffID uuid.UUID, approved bool) error {
	if err := s.requireStaff(ctx, staffID); err != nil {
		return err
	}
	updated, err := s.profiles.SetApproval(ctx, staffID, approved)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staff not found")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"staff_id": staffID.String(), "approved": approved}), "staff approval changed")
	return nil
}

func (s *service) ListAssignments(ctx context.Context, staffID uuid.UUID) ([]LocalBodyWards, error) {
	rows, err := s.repo.ListAssignments(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ward assignments")
	}
	return groupAssignments(rows), nil
}

func (s *service) ListStaff(ctx context.Context) ([]Member, error) {
	profiles, err := s.profiles.ListByRole(ctx, enums.UserRoleDeliveryStaff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff")
	}
	members := make([]Member, 0, len(profiles))
	for _, p := range profiles {
		assignments, err := s.ListAssignments(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{
			UserID:      p.UserID,
			FullName:    p.FullName,
			IsApproved:  p.IsApproved,
			Assignments: assignments,
		})
	}
	return members, nil
}

func (s *service) requireStaff(ctx context.Context, staffID uuid.UUID) error {
	profile, err := s.profiles.FindByID(ctx, staffID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff profile")
	}
	if profile == nil || profile.Role != enums.UserRoleDeliveryStaff {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staff not found")
	}
	return nil
}

// normalizeWards dedupes and sorts wards, rejecting numbers outside the
// local body. A zero wardCount means the body has no ward register.
func normalizeWards(wards []int, wardCount int) ([]int, error) {
	seen := make(map[int]struct{}, len(wards))
	out := make([]int, 0, len(wards))
	var invalid []int
	for _, w := range wards {
		if w <= 0 || (wardCount > 0 && w > wardCount) {
			invalid = append(invalid, w)
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ward numbers out of range").
			WithDetails(map[string]any{"wards": invalid, "ward_count": wardCount})
	}
	sort.Ints(out)
	return out, nil
}

func groupAssignments(rows []AssignmentRow) []LocalBodyWards {
	out := []LocalBodyWards{}
	index := map[uuid.UUID]int{}
	for _, row := range rows {
		i, ok := index[row.LocalBodyID]
		if !ok {
			i = len(out)
			index[row.LocalBodyID] = i
			out = append(out, LocalBodyWards{LocalBodyID: row.LocalBodyID, LocalBodyName: row.LocalBodyName})
		}
		out[i].Wards = append(out[i].Wards, row.WardNumber)
	}
	return out
}
