package middleware

import "context"

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxStoreID   contextKey = "store_id"
	ctxStoreType contextKey = "store_type"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, ctxRole) }

func StoreIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxStoreID) }

// StoreTypeFromContext returns the active store's type claim, if any.
func StoreTypeFromContext(ctx context.Context) string { return stringValue(ctx, ctxStoreType) }

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithStoreID injects the store identifier into the context for downstream handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// WithStoreType injects the active store type into the context.
func WithStoreType(ctx context.Context, storeType string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreType, storeType)
}
