package controllers

import (
	"net/http"
	"time"

	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/api/validators"
	internalauth "github.com/accordmusic/accord-backend/internal/auth"
	"github.com/accordmusic/accord-backend/pkg/config"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

// Login authenticates credentials and sets the session cookie.
func Login(svc internalauth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var input internalauth.LoginInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    result.Token,
			Path:     "/",
			Expires:  time.Now().Add(cfg.TTL),
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		responses.WriteSuccess(w, result)
	}
}

// Logout revokes the current session and clears the cookie. A request
// without a cookie still succeeds so logout is idempotent.
func Logout(svc internalauth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
			if err := svc.Logout(r.Context(), cookie.Value); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
