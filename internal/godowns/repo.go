package godowns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Repository persists godowns and their region bindings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, godown *models.Godown) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Godown, error)
	List(ctx context.Context, godownType *enums.GodownType) ([]models.Godown, error)
	FindLocalBody(ctx context.Context, id uuid.UUID) (*models.LocalBody, error)
	LocalBodiesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.LocalBody, error)
	EnsureBinding(ctx context.Context, godownID, localBodyID uuid.UUID) error
	BoundLocalBodyIDs(ctx context.Context, godownID uuid.UUID) ([]uuid.UUID, error)
	InsertBindings(ctx context.Context, bindings []models.GodownLocalBody) error
	DeleteBinding(ctx context.Context, godownID, localBodyID uuid.UUID) (int64, error)
	ReplaceWards(ctx context.Context, godownID, localBodyID uuid.UUID, wards []int) error
	DeleteWards(ctx context.Context, godownID, localBodyID uuid.UUID) error
	BindingsFor(ctx context.Context, godownIDs []uuid.UUID) ([]models.GodownLocalBody, error)
	WardsFor(ctx context.Context, godownIDs []uuid.UUID) ([]models.GodownWard, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, godown *models.Godown) error {
	return r.db.WithContext(ctx).Create(godown).Error
}

// Delete removes the godown together with its bindings.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("godown_id = ?", id).Delete(&models.GodownWard{}).Error; err != nil {
		return err
	}
	if err := db.Where("godown_id = ?", id).Delete(&models.GodownLocalBody{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.Godown{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Godown, error) {
	var godown models.Godown
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&godown).Error; err != nil {
		return nil, err
	}
	return &godown, nil
}

func (r *repository) List(ctx context.Context, godownType *enums.GodownType) ([]models.Godown, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id ASC")
	if godownType != nil {
		query = query.Where("godown_type = ?", *godownType)
	}
	var godowns []models.Godown
	if err := query.Find(&godowns).Error; err != nil {
		return nil, err
	}
	return godowns, nil
}

func (r *repository) FindLocalBody(ctx context.Context, id uuid.UUID) (*models.LocalBody, error) {
	var body models.LocalBody
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&body).Error; err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *repository) LocalBodiesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.LocalBody, error) {
	out := make(map[uuid.UUID]models.LocalBody, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var bodies []models.LocalBody
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&bodies).Error; err != nil {
		return nil, err
	}
	for _, b := range bodies {
		out[b.ID] = b
	}
	return out, nil
}

func (r *repository) EnsureBinding(ctx context.Context, godownID, localBodyID uuid.UUID) error {
	var existing models.GodownLocalBody
	err := r.db.WithContext(ctx).
		Where("godown_id = ? AND local_body_id = ?", godownID, localBodyID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GodownLocalBody{GodownID: godownID, LocalBodyID: localBodyID}).Error
}

func (r *repository) BoundLocalBodyIDs(ctx context.Context, godownID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.GodownLocalBody{}).
		Where("godown_id = ?", godownID).
		Pluck("local_body_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) InsertBindings(ctx context.Context, bindings []models.GodownLocalBody) error {
	if len(bindings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&bindings).Error
}

func (r *repository) DeleteBinding(ctx context.Context, godownID, localBodyID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("godown_id = ? AND local_body_id = ?", godownID, localBodyID).
		Delete(&models.GodownLocalBody{})
	return res.RowsAffected, res.Error
}

// ReplaceWards swaps the ward set of one godown binding.
func (r *repository) ReplaceWards(ctx context.Context, godownID, localBodyID uuid.UUID, wards []int) error {
	if err := r.DeleteWards(ctx, godownID, localBodyID); err != nil {
		return err
	}
	if len(wards) == 0 {
		return nil
	}
	rows := make([]models.GodownWard, 0, len(wards))
	for _, w := range wards {
		rows = append(rows, models.GodownWard{GodownID: godownID, LocalBodyID: localBodyID, WardNumber: w})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) DeleteWards(ctx context.Context, godownID, localBodyID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("godown_id = ? AND local_body_id = ?", godownID, localBodyID).
		Delete(&models.GodownWard{}).Error
}

func (r *repository) BindingsFor(ctx context.Context, godownIDs []uuid.UUID) ([]models.GodownLocalBody, error) {
	if len(godownIDs) == 0 {
		return []models.GodownLocalBody{}, nil
	}
	var rows []models.GodownLocalBody
	err := r.db.WithContext(ctx).
		Where("godown_id IN ?", godownIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) WardsFor(ctx context.Context, godownIDs []uuid.UUID) ([]models.GodownWard, error) {
	if len(godownIDs) == 0 {
		return []models.GodownWard{}, nil
	}
	var rows []models.GodownWard
	err := r.db.WithContext(ctx).
		Where("godown_id IN ?", godownIDs).
		Order("ward_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
