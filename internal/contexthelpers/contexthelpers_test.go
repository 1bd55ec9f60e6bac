package contexthelpers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/fitplan/internal/contexthelpers"
)

func TestAnonymousContext(t *testing.T) {
	ctx := context.Background()
	if contexthelpers.IsAuthenticated(ctx) {
		t.Error("empty context should not be authenticated")
	}
	if got := contexthelpers.AuthenticatedUserID(ctx); got != 0 {
		t.Errorf("AuthenticatedUserID() = %d, want 0", got)
	}
	if got := contexthelpers.CSPNonce(ctx); got != "" {
		t.Errorf("CSPNonce() = %q, want empty", got)
	}
}

func TestAuthenticateContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/plans/active", nil)
	r = contexthelpers.AuthenticateContext(r, 42, true)
	r = contexthelpers.SetCurrentPath(r, "/plans/active")
	r = contexthelpers.SetCSPNonce(r, "nonce")

	ctx := r.Context()
	if !contexthelpers.IsAuthenticated(ctx) {
		t.Error("expected authenticated context")
	}
	if got := contexthelpers.AuthenticatedUserID(ctx); got != 42 {
		t.Errorf("AuthenticatedUserID() = %d, want 42", got)
	}
	if !contexthelpers.IsAdmin(ctx) {
		t.Error("expected admin")
	}
	if got := contexthelpers.CurrentPath(ctx); got != "/plans/active" {
		t.Errorf("CurrentPath() = %q", got)
	}
	if got := contexthelpers.CSPNonce(ctx); got != "nonce" {
		t.Errorf("CSPNonce() = %q", got)
	}
}
