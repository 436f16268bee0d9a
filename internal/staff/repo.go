package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

// AssignmentRow is a ward assignment joined with its local body name.
type AssignmentRow struct {
	LocalBodyID   uuid.UUID `gorm:"column:local_body_id"`
	LocalBodyName string    `gorm:"column:local_body_name"`
	WardNumber    int       `gorm:"column:ward_number"`
}

// Repository persists delivery staff ward assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLocalBody(ctx context.Context, id uuid.UUID) (*models.LocalBody, error)
	DeleteAssignments(ctx context.Context, staffID, localBodyID uuid.UUID) error
	CreateAssignments(ctx context.Context, rows []models.StaffWardAssignment) error
	ListAssignments(ctx context.Context, staffID uuid.UUID) ([]AssignmentRow, error)
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

// FindLocalBody returns nil when the id is unknown.
func (r *repository) FindLocalBody(ctx context.Context, id uuid.UUID) (*models.LocalBody, error) {
	var body models.LocalBody
	if err := r.db.WithContext(ctx).First(&body, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &body, nil
}

func (r *repository) DeleteAssignments(ctx context.Context, staffID, localBodyID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("staff_user_id = ? AND local_body_id = ?", staffID, localBodyID).
		Delete(&models.StaffWardAssignment{}).Error
}

func (r *repository) CreateAssignments(ctx context.Context, rows []models.StaffWardAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) ListAssignments(ctx context.Context, staffID uuid.UUID) ([]AssignmentRow, error) {
	var rows []AssignmentRow
	err := r.db.WithContext(ctx).
		Table("delivery_staff_ward_assignments AS a").
		Select("a.local_body_id, COALESCE(lb.name, '') AS local_body_name, a.ward_number").
		Joins("LEFT JOIN locations_local_bodies AS lb ON lb.id = a.local_body_id").
		Where("a.staff_user_id = ?", staffID).
		Order("local_body_name ASC").
		Order("a.ward_number ASC").
		Scan(&rows).Error
	return rows, err
}
