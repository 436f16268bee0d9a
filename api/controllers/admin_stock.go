package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/api/responses"
	"github.com/pennyekart/pennyekart-backend/api/validators"
	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

const expiryLayout = "2006-01-02"

// AdminStockReport serves the stock read model. refresh=true rebuilds it
// before filtering.
func AdminStockReport(svc inventory.ReportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock report unavailable"))
			return
		}
		filter, err := stockFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if strings.EqualFold(r.URL.Query().Get("refresh"), "true") {
			if _, err := svc.Refresh(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		view, err := svc.View(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func stockFilter(r *http.Request) (inventory.Filter, error) {
	q := r.URL.Query()
	filter := inventory.Filter{
		Search:   validators.SanitizeString(q.Get("search"), 100),
		Category: validators.SanitizeString(q.Get("category"), 100),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseStockStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock status")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("godown_type")); raw != "" {
		gt, err := enums.ParseGodownType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid godown type")
		}
		filter.GodownType = &gt
	}
	godownID, err := validators.ParseQueryUUID(r, "godown_id")
	if err != nil {
		return filter, err
	}
	filter.GodownID = godownID
	dates, err := validators.ParseQueryDates(r)
	if err != nil {
		return filter, err
	}
	filter.Dates = dates
	return filter, nil
}

type purchaseLineRequest struct {
	ProductID     uuid.UUID        `json:"product_id"`
	Quantity      int              `json:"quantity"`
	PurchasePrice decimal.Decimal  `json:"purchase_price" validate:"money"`
	MRP           *decimal.Decimal `json:"mrp" validate:"omitempty,money"`
	BatchNumber   string           `json:"batch_number" validate:"max=64"`
	ExpiryDate    string           `json:"expiry_date"`
}

type purchaseRequest struct {
	GodownIDs []uuid.UUID           `json:"godown_ids" validate:"required,min=1"`
	Lines     []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// AdminRecordPurchase receives stock into one or more godowns.
func AdminRecordPurchase(svc inventory.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload purchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]inventory.PurchaseLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			expiry, err := parseExpiry(line.ExpiryDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			lines = append(lines, inventory.PurchaseLine{
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
				PurchasePrice: line.PurchasePrice,
				MRP:           line.MRP,
				BatchNumber:   validators.SanitizeString(line.BatchNumber, 64),
				ExpiryDate:    expiry,
			})
		}

		result, err := svc.RecordPurchase(r.Context(), inventory.RecordPurchaseInput{
			GodownIDs: payload.GodownIDs,
			Lines:     lines,
			Actor:     &outbox.ActorRef{UserID: adminID, Role: callerRole(r)},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func AdminListPurchases(svc inventory.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dates, err := validators.ParseQueryDates(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		godownID, err := validators.ParseQueryUUID(r, "godown_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPurchases(r.Context(), inventory.PurchaseFilter{
			Limit:    limit,
			Dates:    dates,
			GodownID: godownID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"purchases": rows})
	}
}

type updateBatchRequest struct {
	Quantity      int             `json:"quantity" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"money"`
	BatchNumber   string          `json:"batch_number" validate:"max=64"`
	ExpiryDate    string          `json:"expiry_date"`
}

func AdminUpdateBatch(svc inventory.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		batchID, err := pathUUID(r, "batchId", "batch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiry, err := parseExpiry(payload.ExpiryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.UpdateBatch(r.Context(), batchID, inventory.UpdateBatchInput{
			Quantity:      payload.Quantity,
			PurchasePrice: payload.PurchasePrice,
			BatchNumber:   validators.SanitizeString(payload.BatchNumber, 64),
			ExpiryDate:    expiry,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

func AdminDeleteBatch(svc inventory.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		batchID, err := pathUUID(r, "batchId", "batch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteBatch(r.Context(), batchID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func parseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(expiryLayout, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expiry_date must be YYYY-MM-DD")
	}
	return &t, nil
}
