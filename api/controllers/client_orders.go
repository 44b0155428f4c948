package controllers

import (
	"net/http"

	"github.com/accordmusic/accord-backend/api/middleware"
	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/api/validators"
	"github.com/accordmusic/accord-backend/internal/checkout"
	internalorders "github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

type createOrderRequest struct {
	ContactName     string                        `json:"contact_name" validate:"required"`
	DeliveryAddress string                        `json:"delivery_address" validate:"required"`
	DeliveryPhone   string                        `json:"delivery_phone" validate:"required"`
	CommentClient   *string                       `json:"comment_client"`
	Items           []checkout.CreateOrderItem    `json:"items" validate:"required,min=1,dive"`
	TradeIns        []checkout.CreateOrderTradeIn `json:"trade_ins" validate:"dive"`
}

type changeStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note"`
}

// CreateOrder places a new order for the authenticated client.
func CreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), checkout.CreateOrderInput{
			ContactName:     req.ContactName,
			DeliveryAddress: req.DeliveryAddress,
			DeliveryPhone:   req.DeliveryPhone,
			CommentClient:   req.CommentClient,
			Items:           req.Items,
			TradeIns:        req.TradeIns,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// MyOrders lists the authenticated client's orders newest first.
func MyOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		list, err := svc.ListMine(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns the full order view subject to role visibility rules.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		detail, err := svc.Detail(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// OrderHistory returns the order's status transition log.
func OrderHistory(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		history, err := svc.History(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}

// ChangeOrderStatus is the generic transition endpoint. The same authorization
// and lifecycle rules apply as on the dedicated staff endpoints.
func ChangeOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req changeStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown order status"))
			return
		}

		result, err := svc.ChangeStatus(r.Context(), internalorders.ChangeStatusInput{
			OrderID: orderID,
			Target:  target,
			Note:    req.Note,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
