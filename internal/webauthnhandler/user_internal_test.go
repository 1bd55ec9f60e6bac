package webauthnhandler

import (
	"bytes"
	"strings"
	"testing"
)

func Test_newRandomUser(t *testing.T) {
	first, err := newRandomUser()
	if err != nil {
		t.Fatalf("newRandomUser: %v", err)
	}
	second, err := newRandomUser()
	if err != nil {
		t.Fatalf("newRandomUser: %v", err)
	}

	if got := len(first.WebAuthnID()); got != webAuthnIDLength {
		t.Errorf("id length %d, want %d", got, webAuthnIDLength)
	}
	if bytes.Equal(first.WebAuthnID(), second.WebAuthnID()) {
		t.Error("two random users share an id")
	}
	adjective, noun, ok := strings.Cut(first.WebAuthnDisplayName(), " ")
	if !ok || adjective == "" || noun == "" {
		t.Errorf("display name %q is not two words", first.WebAuthnDisplayName())
	}
	if first.WebAuthnName() != first.WebAuthnDisplayName() {
		t.Errorf("name %q differs from display name %q", first.WebAuthnName(), first.WebAuthnDisplayName())
	}
	if len(first.WebAuthnCredentials()) != 0 {
		t.Error("new user should have no credentials")
	}
}
