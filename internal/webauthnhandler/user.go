package webauthnhandler

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-webauthn/webauthn/webauthn"
)

type sessionKey string

const (
	webAuthnSessionKey sessionKey = "webauthn_session"
	userIDSessionKey   sessionKey = "webauthn_user_id"
)

// webAuthnIDLength is the maximum user handle length allowed by WebAuthn.
const webAuthnIDLength = 64

//nolint:gochecknoglobals // word lists for generated display names.
var (
	nameAdjectives = []string{"Brave", "Steady", "Swift", "Mighty", "Calm", "Bold", "Nimble", "Tireless"}
	nameNouns      = []string{"Lifter", "Runner", "Rower", "Climber", "Sprinter", "Athlete", "Cyclist", "Swimmer"}
)

// user is the passkey account. Passkeys are discoverable so no username is asked at registration.
type user struct {
	id          []byte
	displayName string
	credentials []webauthn.Credential
}

func (u *user) WebAuthnID() []byte {
	return u.id
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

func pick(words []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("random index: %w", err)
	}
	return words[n.Int64()], nil
}

// newRandomUser creates a user with a random handle and a generated display name such as "Steady Rower".
func newRandomUser() (*user, error) {
	id := make([]byte, webAuthnIDLength)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("random user id: %w", err)
	}
	adjective, err := pick(nameAdjectives)
	if err != nil {
		return nil, err
	}
	noun, err := pick(nameNouns)
	if err != nil {
		return nil, err
	}
	return &user{
		id:          id,
		displayName: adjective + " " + noun,
		credentials: nil,
	}, nil
}
