package contexthelpers

import (
	"context"
	"net/http"
)

// WithAuthenticatedUser marks ctx as belonging to userID. The workout service reads the user from here.
func WithAuthenticatedUser(ctx context.Context, userID int, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, isAuthenticatedKey, true)
	ctx = context.WithValue(ctx, authenticatedUserIDKey, userID)
	return context.WithValue(ctx, isAdminKey, isAdmin)
}

func AuthenticateContext(r *http.Request, userID int, isAdmin bool) *http.Request {
	return r.WithContext(WithAuthenticatedUser(r.Context(), userID, isAdmin))
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentPathKey, currentPath))
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), cspNonceKey, cspNonce))
}
