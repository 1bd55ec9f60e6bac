package webauthnhandler

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/fitplan/internal/ptr"
	"github.com/myrjola/fitplan/internal/sqlite"
)

const ceremonyTimeout = 5 * time.Minute

//nolint:gochecknoglobals // gob.Register panics on conflicting registrations.
var registerSessionData sync.Once

// WebAuthnHandler implements passkey registration and login. Users are identified by a random WebAuthn handle
// stored in the session and resolved to users.id by AuthenticateMiddleware.
type WebAuthnHandler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	database       *sqlite.Database
}

func New(
	addr string,
	fqdn string,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	db *sqlite.Database,
) (*WebAuthnHandler, error) {
	// The ceremony state lives in the session between the start and finish requests.
	// See https://github.com/alexedwards/scs?tab=readme-ov-file#working-with-session-data.
	registerSessionData.Do(func() {
		gob.Register(webauthn.SessionData{}) //nolint:exhaustruct // only need to register the struct.
	})

	rpOrigins := []string{"https://" + fqdn}
	if fqdn == "localhost" {
		//goland:noinspection HttpUrlsUsage // This is a local server.
		rpOrigins = []string{"http://" + addr}
	}

	ceremony := webauthn.TimeoutConfig{
		Enforce:    true,
		Timeout:    ceremonyTimeout,
		TimeoutUVD: ceremonyTimeout,
	}
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPID:                        fqdn,
		RPDisplayName:               "Fitplan",
		RPOrigins:                   rpOrigins,
		RPTopOrigins:                nil,
		RPTopOriginVerificationMode: protocol.TopOriginIgnoreVerificationMode,
		AttestationPreference:       protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      ptr.Ref(true),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		},
		Debug:                false,
		EncodeUserIDAsString: false,
		Timeouts: webauthn.TimeoutsConfig{
			Login:        ceremony,
			Registration: ceremony,
		},
		MDS: nil,
	})
	if err != nil {
		return nil, fmt.Errorf("new webauthn: %w", err)
	}

	return &WebAuthnHandler{
		logger:         logger,
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		database:       db,
	}, nil
}

// BeginRegistration creates a fresh user and returns the credential creation options as JSON.
func (h *WebAuthnHandler) BeginRegistration(ctx context.Context) ([]byte, error) {
	u, err := newRandomUser()
	if err != nil {
		return nil, fmt.Errorf("new user: %w", err)
	}

	opts, session, err := h.webAuthn.BeginRegistration(
		u,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      protocol.ResidentKeyNotRequired(),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		}),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)
	if err = h.upsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("JSON encode: %w", err)
	}
	return out, nil
}

func (h *WebAuthnHandler) ceremonySession(ctx context.Context) (webauthn.SessionData, error) {
	raw := h.sessionManager.Get(ctx, string(webAuthnSessionKey))
	session, ok := raw.(webauthn.SessionData)
	if !ok {
		return session, fmt.Errorf("could not parse webauthn.SessionData (data: %v)", raw)
	}
	return session, nil
}

// login renews the session token against fixation and stores the user handle in the session.
func (h *WebAuthnHandler) login(ctx context.Context, webAuthnID []byte) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Remove(ctx, string(webAuthnSessionKey))
	h.sessionManager.Put(ctx, string(userIDSessionKey), webAuthnID)
	return nil
}

// FinishRegistration verifies the attestation, stores the credential and logs the new user in.
func (h *WebAuthnHandler) FinishRegistration(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return fmt.Errorf("parse webauthn session: %w", err)
	}

	u, err := h.getUser(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	credential, err := h.webAuthn.FinishRegistration(u, session, r)
	if err != nil {
		return fmt.Errorf("finish webauthn registration: %w", err)
	}
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}
	return h.login(ctx, u.WebAuthnID())
}

// BeginLogin starts a discoverable login and returns the assertion options as JSON.
func (h *WebAuthnHandler) BeginLogin(ctx context.Context) ([]byte, error) {
	options, session, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, fmt.Errorf("begin discoverable webauthn login: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)

	out, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("json marshal webauthn options: %w", err)
	}
	return out, nil
}

// FinishLogin validates the assertion against the stored credential and logs the user in.
func (h *WebAuthnHandler) FinishLogin(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return fmt.Errorf("parse webauthn session: %w", err)
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return fmt.Errorf("parse credential request response: %w", err)
	}
	findUser := func(_, userHandle []byte) (webauthn.User, error) {
		return h.getUser(ctx, userHandle)
	}
	u, credential, err := h.webAuthn.ValidatePasskeyLogin(findUser, session, parsedResponse)
	if err != nil {
		return fmt.Errorf("validate passkey login: %w", err)
	}

	// The sign count and flags change on every assertion.
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}
	return h.login(ctx, u.WebAuthnID())
}

func (h *WebAuthnHandler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}
