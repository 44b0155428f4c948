package middleware

import (
	"context"

	"github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// ActorFromContext packages the authenticated identity for service calls.
// The bool is false when the request never passed the auth middleware.
func ActorFromContext(ctx context.Context) (orders.Actor, bool) {
	userID := UserIDFromContext(ctx)
	role := RoleFromContext(ctx)
	if userID <= 0 || !role.IsValid() {
		return orders.Actor{}, false
	}
	return orders.Actor{UserID: userID, Role: role}, true
}

// WithIdentity injects the authenticated identity into the context.
func WithIdentity(ctx context.Context, userID int64, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
