package contexthelpers

import (
	"context"
)

func value[T any](ctx context.Context, key contextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// IsAuthenticated reports whether the request carries a logged-in user.
func IsAuthenticated(ctx context.Context) bool {
	return value[bool](ctx, isAuthenticatedKey)
}

// AuthenticatedUserID returns the users.id of the logged-in user or 0 when anonymous.
func AuthenticatedUserID(ctx context.Context) int {
	return value[int](ctx, authenticatedUserIDKey)
}

func IsAdmin(ctx context.Context) bool {
	return value[bool](ctx, isAdminKey)
}

func CurrentPath(ctx context.Context) string {
	return value[string](ctx, currentPathKey)
}

func CSPNonce(ctx context.Context) string {
	return value[string](ctx, cspNonceKey)
}
