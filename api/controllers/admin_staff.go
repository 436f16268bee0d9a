package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/api/responses"
	"github.com/pennyekart/pennyekart-backend/api/validators"
	"github.com/pennyekart/pennyekart-backend/internal/fulfillment"
	"github.com/pennyekart/pennyekart-backend/internal/staff"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

func AdminListStaff(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}
		members, err := svc.ListStaff(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"staff": members})
	}
}

type staffWardsRequest struct {
	LocalBodyID uuid.UUID `json:"local_body_id" validate:"required"`
	Wards       []int     `json:"wards" validate:"dive,gt=0"`
}

// AdminReplaceStaffWards sets the wards a staff member covers in one local
// body. An empty list removes that local body from their coverage.
func AdminReplaceStaffWards(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}
		staffID, err := pathUUID(r, "staffId", "staff id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload staffWardsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignments, err := svc.ReplaceWardAssignments(r.Context(), staffID, payload.LocalBodyID, payload.Wards)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"assignments": assignments})
	}
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func AdminSetStaffApproval(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable"))
			return
		}
		staffID, err := pathUUID(r, "staffId", "staff id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload approvalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetApproval(r.Context(), staffID, *payload.Approved); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"staff_id": staffID, "approved": *payload.Approved})
	}
}

type assignOrderRequest struct {
	StaffID uuid.UUID `json:"staff_id" validate:"required"`
}

// AdminAssignOrder hands an order to a delivery staff member.
func AdminAssignOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload assignOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AssignDeliveryStaff(r.Context(), fulfillment.Actor{UserID: adminID, Role: callerRole(r)}, orderID, payload.StaffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
