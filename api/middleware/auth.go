package middleware

import (
	"context"
	"net/http"

	"github.com/accordmusic/accord-backend/api/responses"
	"github.com/accordmusic/accord-backend/pkg/auth/session"
	"github.com/accordmusic/accord-backend/pkg/config"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/logger"
)

// SessionResolver looks up the identity behind a session token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (session.Identity, error)
}

// Auth reads the session cookie, resolves it against the session store and
// seeds the request context with the authenticated identity.
func Auth(cfg config.SessionConfig, sessions SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity.UserID, identity.Role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID)
				ctx = logg.WithActorRole(ctx, identity.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
