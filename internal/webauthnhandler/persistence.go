package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
)

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u webauthn.User) error {
	stmt := `INSERT INTO users (webauthn_user_id, display_name)
VALUES (:webauthn_user_id, :display_name)
ON CONFLICT (webauthn_user_id) DO UPDATE SET display_name = excluded.display_name`
	if _, err := h.database.ReadWrite.ExecContext(ctx, stmt, u.WebAuthnID(), u.WebAuthnDisplayName()); err != nil {
		return fmt.Errorf("db upsert user %s (webauthn id: %s): %w",
			u.WebAuthnDisplayName(), hex.EncodeToString(u.WebAuthnID()), err)
	}
	return nil
}

const credentialColumns = `id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment`

// getUser loads the user and its credentials by WebAuthn user handle.
func (h *WebAuthnHandler) getUser(ctx context.Context, webAuthnID []byte) (_ *user, err error) {
	var (
		u      user
		userID int
	)
	if err = h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT id, webauthn_user_id, display_name FROM users WHERE webauthn_user_id = ?`, webAuthnID).
		Scan(&userID, &u.id, &u.displayName); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	rows, err := h.database.ReadOnly.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				slog.Any("error", fmt.Errorf("close rows: %w", closeErr)))
		}
	}()

	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  []byte
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if err = json.Unmarshal(transport, &credential.Transport); err != nil {
			return nil, fmt.Errorf("JSON decode transport: %w", err)
		}
		u.credentials = append(u.credentials, credential)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return &u, nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, webAuthnID []byte, credential *webauthn.Credential) error {
	stmt := `INSERT INTO credentials (user_id, ` + credentialColumns + `)
VALUES ((SELECT id FROM users WHERE webauthn_user_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET attestation_type            = excluded.attestation_type,
                               transport                   = excluded.transport,
                               flag_user_present           = excluded.flag_user_present,
                               flag_user_verified          = excluded.flag_user_verified,
                               flag_backup_eligible        = excluded.flag_backup_eligible,
                               flag_backup_state           = excluded.flag_backup_state,
                               authenticator_aaguid        = excluded.authenticator_aaguid,
                               authenticator_sign_count    = excluded.authenticator_sign_count,
                               authenticator_clone_warning = excluded.authenticator_clone_warning,
                               authenticator_attachment    = excluded.authenticator_attachment`
	transport, err := json.Marshal(credential.Transport)
	if err != nil {
		return fmt.Errorf("JSON encode transport: %w", err)
	}
	if _, err = h.database.ReadWrite.ExecContext(ctx, stmt,
		webAuthnID,
		credential.ID,
		credential.PublicKey,
		credential.AttestationType,
		string(transport),
		credential.Flags.UserPresent,
		credential.Flags.UserVerified,
		credential.Flags.BackupEligible,
		credential.Flags.BackupState,
		credential.Authenticator.AAGUID,
		credential.Authenticator.SignCount,
		credential.Authenticator.CloneWarning,
		credential.Authenticator.Attachment,
	); err != nil {
		return fmt.Errorf("db upsert credential (webauthn id: %s, credential id: %s): %w",
			hex.EncodeToString(webAuthnID), hex.EncodeToString(credential.ID), err)
	}
	return nil
}

// sessionUser is what the authentication middleware needs to know about the logged-in user.
type sessionUser struct {
	id      int
	isAdmin bool
}

var errUnknownUser = errors.New("unknown user")

// lookupSessionUser resolves the WebAuthn handle stored in the session to users.id. It returns errUnknownUser when
// the account has been deleted.
func (h *WebAuthnHandler) lookupSessionUser(ctx context.Context, webAuthnID []byte) (sessionUser, error) {
	var u sessionUser
	err := h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT id, is_admin FROM users WHERE webauthn_user_id = ?`, webAuthnID).Scan(&u.id, &u.isAdmin)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return u, errUnknownUser
	case err != nil:
		return u, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
