package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the authenticated identity into the context.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID.String())
	return context.WithValue(ctx, ctxRole, string(role))
}

// ActorFromContext rebuilds the authenticated actor; ok is false when the request carries none.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return authz.Actor{}, false
	}
	role := enums.UserRole(RoleFromContext(ctx))
	if !role.IsValid() {
		return authz.Actor{}, false
	}
	return authz.Actor{UserID: userID, Role: role}, true
}
