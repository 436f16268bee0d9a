package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Profile holds the storefront attributes of an authenticated user.
type Profile struct {
	UserID      uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName    string         `gorm:"column:full_name;not null;default:''" json:"full_name"`
	Role        enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'" json:"role"`
	LocalBodyID *uuid.UUID     `gorm:"column:local_body_id;type:uuid" json:"local_body_id"`
	WardNumber  *int           `gorm:"column:ward_number" json:"ward_number"`
	IsApproved  bool           `gorm:"column:is_approved;not null;default:false" json:"is_approved"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
