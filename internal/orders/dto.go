package orders

import (
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
	"github.com/pennyekart/pennyekart-backend/pkg/types"
)

// StaffView selects which of a rider's orders to list.
type StaffView string

const (
	StaffViewActive    StaffView = "active"
	StaffViewDelivered StaffView = "delivered"
)

// ParseStaffView defaults blank input to the active view.
func ParseStaffView(value string) (StaffView, bool) {
	switch StaffView(value) {
	case "", StaffViewActive:
		return StaffViewActive, true
	case StaffViewDelivered:
		return StaffViewDelivered, true
	}
	return "", false
}

// StaffOrderFilter narrows the orders assigned to a rider. Dates apply to the
// order creation day.
type StaffOrderFilter struct {
	View   StaffView
	Dates  types.DateRange
	Params pagination.Params
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
