package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// ParseIDParam reads a positive numeric id from the chi route parameters.
func ParseIDParam(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "route parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
