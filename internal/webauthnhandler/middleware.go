package webauthnhandler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/logging"
)

// AuthenticateMiddleware resolves the session's passkey user and stores it in the request context. Anonymous
// requests and sessions pointing at deleted users pass through unauthenticated.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		webAuthnID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))
		if webAuthnID == nil {
			next.ServeHTTP(w, r)
			return
		}

		u, err := h.lookupSessionUser(ctx, webAuthnID)
		switch {
		case errors.Is(err, errUnknownUser):
		case err != nil:
			h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		default:
			r = contexthelpers.AuthenticateContext(r, u.id, u.isAdmin)
		}

		// The token itself must stay out of the logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", u.id),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
