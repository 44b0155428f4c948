package controllers

import (
	"net/http"

	"github.com/accordmusic/accord-backend/api/middleware"
	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/api/validators"
	internalorders "github.com/accordmusic/accord-backend/internal/orders"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

// CourierQueue lists ready orders no courier has claimed yet.
func CourierQueue(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCourierQueue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// CourierAssigned lists deliveries the authenticated courier currently holds.
func CourierAssigned(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		list, err := svc.ListCourierAssigned(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// CourierTake claims a ready order for delivery.
func CourierTake(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.CourierTake, "delivering", logg)
}

// CourierFinish confirms delivery and closes the order.
func CourierFinish(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return claimHandler(svc.CourierFinish, "finished", logg)
}
