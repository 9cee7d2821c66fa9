package identity

import "context"

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	storeIDKey contextKey = "store_id"
	roleKey    contextKey = "role"
)

// SetUserContext stores token claims into the request context (called by
// the auth middleware).
func SetUserContext(ctx context.Context, userID uint, storeID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, storeIDKey, storeID)
	ctx = context.WithValue(ctx, roleKey, role)
	return ctx
}

// UserIDFromContext retrieves the authenticated user id safely.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey).(uint)
	return id, ok
}

func StoreIDFromContext(ctx context.Context) string {
	storeID, _ := ctx.Value(storeIDKey).(string)
	return storeID
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
