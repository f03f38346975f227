package middleware

import (
	"context"

	"github.com/orderdesk/orderdesk-backend/internal/tenants"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxAccess contextKey = "tenant_access"
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

func AccessFromContext(ctx context.Context) (tenants.Access, bool) {
	if ctx == nil {
		return tenants.Access{}, false
	}
	if v, ok := ctx.Value(ctxAccess).(tenants.Access); ok {
		return v, true
	}
	return tenants.Access{}, false
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithAccess injects the resolved tenant access for downstream handlers.
func WithAccess(ctx context.Context, access tenants.Access) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccess, access)
}
