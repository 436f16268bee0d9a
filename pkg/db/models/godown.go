package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// Godown is a warehouse.
type Godown struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string           `gorm:"column:name;not null" json:"name"`
	GodownType enums.GodownType `gorm:"column:godown_type;type:text;not null" json:"godown_type"`
	IsActive   bool             `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Godown) TableName() string { return "godowns" }

func (g *Godown) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// GodownLocalBody binds a godown to an administrative local body.
type GodownLocalBody struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GodownID    uuid.UUID `gorm:"column:godown_id;type:uuid;not null" json:"godown_id"`
	LocalBodyID uuid.UUID `gorm:"column:local_body_id;type:uuid;not null" json:"local_body_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (GodownLocalBody) TableName() string { return "godown_local_bodies" }

func (b *GodownLocalBody) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// GodownWard narrows a micro godown binding to a single ward.
type GodownWard struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GodownID    uuid.UUID `gorm:"column:godown_id;type:uuid;not null" json:"godown_id"`
	LocalBodyID uuid.UUID `gorm:"column:local_body_id;type:uuid;not null" json:"local_body_id"`
	WardNumber  int       `gorm:"column:ward_number;not null" json:"ward_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (GodownWard) TableName() string { return "godown_wards" }

func (w *GodownWard) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
