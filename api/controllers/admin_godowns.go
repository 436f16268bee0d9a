package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/api/responses"
	"github.com/pennyekart/pennyekart-backend/api/validators"
	"github.com/pennyekart/pennyekart-backend/internal/godowns"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

func AdminListGodowns(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		var godownType *enums.GodownType
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			gt, err := enums.ParseGodownType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid godown type"))
				return
			}
			godownType = &gt
		}
		list, err := svc.ListGodowns(r.Context(), godownType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"godowns": list})
	}
}

type createGodownRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	GodownType string `json:"godown_type" validate:"required"`
}

func AdminCreateGodown(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		var payload createGodownRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gt, err := enums.ParseGodownType(payload.GodownType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid godown type"))
			return
		}
		godown, err := svc.CreateGodown(r.Context(), godowns.CreateGodownInput{
			Name:       validators.SanitizeString(payload.Name, 120),
			GodownType: gt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, godown)
	}
}

func AdminDeleteGodown(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		godownID, err := pathUUID(r, "godownId", "godown id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteGodown(r.Context(), godownID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type microWardsRequest struct {
	LocalBodyID uuid.UUID `json:"local_body_id" validate:"required"`
	All         bool      `json:"all"`
	Wards       []int     `json:"wards" validate:"dive,gt=0"`
}

// AdminAssignMicroWards replaces the wards a micro godown serves in one
// local body.
func AdminAssignMicroWards(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		godownID, err := pathUUID(r, "godownId", "godown id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload microWardsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wards, err := svc.AssignMicroWards(r.Context(), godownID, payload.LocalBodyID, godowns.WardSelection{
			All:   payload.All,
			Wards: payload.Wards,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wards": wards})
	}
}

type localBodiesRequest struct {
	LocalBodyIDs []uuid.UUID `json:"local_body_ids" validate:"required,min=1"`
}

func AdminAssignLocalBodies(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		godownID, err := pathUUID(r, "godownId", "godown id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload localBodiesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		added, err := svc.AssignLocalBodies(r.Context(), godownID, payload.LocalBodyIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"added": added})
	}
}

func AdminRemoveLocalBody(svc godowns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "godown service unavailable"))
			return
		}
		godownID, err := pathUUID(r, "godownId", "godown id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		localBodyID, err := pathUUID(r, "localBodyId", "local body id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveLocalBody(r.Context(), godownID, localBodyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
