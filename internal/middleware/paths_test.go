package middleware_test

import (
	"testing"

	"github.com/reside-hq/reside/internal/middleware"
)

func TestPathSetAnchoredMatch(t *testing.T) {
	ps := middleware.MustPathSet("/api/v1/ping", "/api/v1/leases/.*")

	cases := []struct {
		path string
		want bool
	}{
		{"/api/v1/ping", true},
		{"/API/V1/PING", true},
		{"/api/v1/ping/extra", false},
		{"/api/v1/leases/123/renew", true},
		{"/api/v1/leases", false},
		{"/other", false},
	}
	for _, tc := range cases {
		if got := ps.Match(tc.path); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestPathSetNilNeverMatches(t *testing.T) {
	var ps *middleware.PathSet
	if ps.Match("/anything") {
		t.Fatal("nil set must not match")
	}
}

func TestNewPathSetRejectsBadPattern(t *testing.T) {
	if _, err := middleware.NewPathSet("/api/("); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestTokenPathSetDefaultToken(t *testing.T) {
	ts := middleware.MustTokenPathSet("api", "/webhooks/.*")

	name, ok := ts.Match("/webhooks/screening")
	if !ok || name != "api" {
		t.Fatalf("expected api token, got %q, %v", name, ok)
	}
}

func TestTokenPathSetExplicitToken(t *testing.T) {
	ts := middleware.MustTokenPathSet("api", "/internal/.*:internal_api", "/webhooks/.*")

	name, ok := ts.Match("/internal/tokens")
	if !ok || name != "internal_api" {
		t.Fatalf("expected internal_api token, got %q, %v", name, ok)
	}
	if _, ok := ts.Match("/elsewhere"); ok {
		t.Fatal("unexpected match")
	}
}
