package models

import "github.com/google/uuid"

type District struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null" json:"name"`
}

func (District) TableName() string { return "locations_districts" }

// LocalBody is a panchayath or municipality holding a fixed number of wards.
type LocalBody struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistrictID uuid.UUID `gorm:"column:district_id;type:uuid;not null" json:"district_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	BodyType   string    `gorm:"column:body_type;not null;default:'panchayath'" json:"body_type"`
	WardCount  int       `gorm:"column:ward_count;not null;default:0" json:"ward_count"`
}

func (LocalBody) TableName() string { return "locations_local_bodies" }
