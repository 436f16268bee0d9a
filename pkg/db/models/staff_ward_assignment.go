package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffWardAssignment routes a ward's deliveries to a staff member.
type StaffWardAssignment struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StaffUserID uuid.UUID `gorm:"column:staff_user_id;type:uuid;not null" json:"staff_user_id"`
	LocalBodyID uuid.UUID `gorm:"column:local_body_id;type:uuid;not null" json:"local_body_id"`
	WardNumber  int       `gorm:"column:ward_number;not null" json:"ward_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StaffWardAssignment) TableName() string { return "delivery_staff_ward_assignments" }

func (a *StaffWardAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
