package contexthelpers

type contextKey string

const (
	isAuthenticatedKey     = contextKey("isAuthenticated")
	authenticatedUserIDKey = contextKey("authenticatedUserID")
	isAdminKey             = contextKey("isAdmin")
	currentPathKey         = contextKey("currentPath")
	cspNonceKey            = contextKey("cspNonce")
)
