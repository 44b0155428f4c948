package controllers

import (
	"context"
	"net/http"

	"github.com/accordmusic/accord-backend/api/middleware"
	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/api/validators"
	internalorders "github.com/accordmusic/accord-backend/internal/orders"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ManagerQueue lists new orders no manager has claimed yet.
func ManagerQueue(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListManagerQueue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ManagerAssigned lists orders the authenticated manager currently holds.
func ManagerAssigned(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListManagerAssigned(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ManagerTake claims a new order for preparation.
func ManagerTake(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.ManagerTake, "preparing", logg)
}

// ManagerMarkReady moves a prepared order to ready.
func ManagerMarkReady(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.MarkReady, "ready", logg)
}

// ManagerCancel cancels an order before it leaves the shop. A reason is
// mandatory and lands in the transition log.
func ManagerCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelByStaff(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Reason:  req.Reason,
			Actor:   actor,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}

func claimHandler(op func(ctx context.Context, input internalorders.ClaimInput) error, resultStatus string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := op(r.Context(), internalorders.ClaimInput{OrderID: orderID, Actor: actor}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": resultStatus})
	}
}
