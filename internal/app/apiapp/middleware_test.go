package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/config"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

func TestIdentityMiddlewareSetsAccountContext(t *testing.T) {
	mw := IdentityMiddleware(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("X-Account-ID", "acc-1")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := identity.AccountIDFromContext(r.Context())
		if !ok || accountID != "acc-1" {
			t.Fatalf("account id missing in context: %q", accountID)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestIdentityMiddlewareRejectsMissingHeader(t *testing.T) {
	mw := IdentityMiddleware(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without identity")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{Token: "secret-token"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called on invalid token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuthMiddlewareAcceptsValidToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{Token: "secret-token"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAdminAuthMiddlewareHidesSurfaceWithoutToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called when admin surface is disabled")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}
