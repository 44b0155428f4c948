package controllers

import (
	"net/http"
	"strings"

	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/api/validators"
	internalorders "github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

// AdminOrders lists all orders with optional status, participant and date
// range filters.
func AdminOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseAdminFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAdmin(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func parseAdminFilters(r *http.Request) (internalorders.AdminOrderFilters, error) {
	var filters internalorders.AdminOrderFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}

	var err error
	if filters.ClientID, err = validators.ParseQueryInt64(r, "client_id"); err != nil {
		return filters, err
	}
	if filters.ManagerID, err = validators.ParseQueryInt64(r, "manager_id"); err != nil {
		return filters, err
	}
	if filters.CourierID, err = validators.ParseQueryInt64(r, "courier_id"); err != nil {
		return filters, err
	}
	if filters.DateFrom, err = validators.ParseQueryDate(r, "date_from"); err != nil {
		return filters, err
	}
	if filters.DateTo, err = validators.ParseQueryDate(r, "date_to"); err != nil {
		return filters, err
	}

	return filters, nil
}
