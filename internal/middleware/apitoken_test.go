package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/middleware"
	"github.com/reside-hq/reside/internal/reqctx"
)

func testTokens() config.Tokens {
	return config.Tokens{API: "s3cret", InternalAPI: "internal-s3cret"}
}

func runWebhookAuth(t *testing.T, resolver middleware.TenantResolver, req *http.Request) (*reqctx.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()
	paths := middleware.MustTokenPathSet("api", "/api/v1/webhooks/.*")
	var got *reqctx.Context
	var called bool
	handler := middleware.WebhookAuth(resolver, testTenancy(), testTokens(), paths)(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			got = reqctx.From(r.Context())
		}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec, called
}

func TestWebhookAuthValidToken(t *testing.T) {
	resolver := &fakeResolver{byName: map[string]*tenant.Tenant{"acme": acme()}}

	req := httptest.NewRequest("POST", "/api/v1/webhooks/screening?api-token=s3cret", http.NoBody)
	req.Host = "acme.example.com"

	rc, rec, called := runWebhookAuth(t, resolver, req)
	if !called {
		t.Fatalf("expected next to run, got status %d", rec.Code)
	}
	if !rc.IsWebhookRequest {
		t.Fatal("expected webhook flag")
	}
	if rc.TenantID != acme().ID {
		t.Fatalf("expected tenant resolved from host, got %+v", rc)
	}
}

func TestWebhookAuthBadTokenRejected(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/webhooks/screening?api-token=wrong", http.NoBody)

	_, rec, called := runWebhookAuth(t, &fakeResolver{}, req)
	if called {
		t.Fatal("next must not run with a bad api token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookAuthUnknownTenantStillPasses(t *testing.T) {
	// Webhooks post with fixed hostnames; an unresolvable tenant name is not
	// a rejection, the handler works from the payload instead.
	req := httptest.NewRequest("POST", "/api/v1/webhooks/screening?api-token=s3cret", http.NoBody)
	req.Host = "application.example.com"

	rc, rec, called := runWebhookAuth(t, &fakeResolver{}, req)
	if !called {
		t.Fatalf("expected next to run, got status %d", rec.Code)
	}
	if !rc.IsWebhookRequest || rc.TenantID != "" {
		t.Fatalf("expected flagged request without tenant, got %+v", rc)
	}
}

func TestWebhookAuthUnmatchedPathPassesThrough(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/me", http.NoBody)

	rc, _, called := runWebhookAuth(t, &fakeResolver{}, req)
	if !called {
		t.Fatal("expected unmatched path to pass through")
	}
	if rc.IsWebhookRequest {
		t.Fatal("unmatched path must not be flagged")
	}
}

func TestInternalAuthMarksRequest(t *testing.T) {
	paths := middleware.MustTokenPathSet("internal_api", "/api/v1/internal/.*")
	var got *reqctx.Context
	handler := middleware.InternalAuth(&fakeResolver{}, testTenancy(), testTokens(), paths)(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = reqctx.From(r.Context())
		}))

	req := httptest.NewRequest("POST", "/api/v1/internal/tokens?api-token=internal-s3cret", http.NoBody)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || !got.IsInternalRequest {
		t.Fatalf("expected internal flag, got %+v", got)
	}
}
