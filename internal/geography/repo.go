package geography

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Repository reads the godown bindings that decide which warehouses serve a region.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	MicroGodownIDs(ctx context.Context, localBodyID uuid.UUID, wardNumber int) ([]uuid.UUID, error)
	AreaGodownIDs(ctx context.Context, localBodyID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a geography repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindProfile returns nil without error when the user has no profile row.
func (r *repository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) MicroGodownIDs(ctx context.Context, localBodyID uuid.UUID, wardNumber int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("godown_wards AS gw").
		Joins("JOIN godowns g ON g.id = gw.godown_id").
		Where("gw.local_body_id = ? AND gw.ward_number = ? AND g.godown_type = ?", localBodyID, wardNumber, enums.GodownTypeMicro).
		Order("gw.godown_id").
		Distinct().
		Pluck("gw.godown_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) AreaGodownIDs(ctx context.Context, localBodyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("godown_local_bodies AS glb").
		Joins("JOIN godowns g ON g.id = glb.godown_id").
		Where("glb.local_body_id = ? AND g.godown_type = ?", localBodyID, enums.GodownTypeArea).
		Order("glb.godown_id").
		Distinct().
		Pluck("glb.godown_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
