package controllers

import (
	"net/http"

	"github.com/pennyekart/pennyekart-backend/api/responses"
	"github.com/pennyekart/pennyekart-backend/api/validators"
	checkoutsvc "github.com/pennyekart/pennyekart-backend/internal/checkout"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cod upi"`
	CouponCode    string `json:"coupon_code" validate:"max=64"`
	UseWallet     bool   `json:"use_wallet"`
}

// Checkout turns the caller's cart into one order per fulfilling party. The
// Idempotency-Key header doubles as the checkout group key, so a retried
// request returns the orders it already created.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := idempotencyKey(r)
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Place(r.Context(), userID, checkoutsvc.PlaceInput{
			IdempotencyKey: key,
			PaymentMethod:  payload.PaymentMethod,
			CouponCode:     payload.CouponCode,
			UseWallet:      payload.UseWallet,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
