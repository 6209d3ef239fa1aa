package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	rshttp "github.com/reside-hq/reside/internal/adapter/http"
	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/auth"
	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/reqctx"
	"github.com/reside-hq/reside/internal/service"
)

// stubStore implements database.Store over a fixed tenant list.
type stubStore struct {
	tenants []tenant.Tenant
}

func (s *stubStore) find(match func(*tenant.Tenant) bool) (*tenant.Tenant, error) {
	for i := range s.tenants {
		if match(&s.tenants[i]) {
			t := s.tenants[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) GetTenantByID(_ context.Context, id string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.ID == id })
}

func (s *stubStore) GetTenantByName(_ context.Context, name string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.Name == name })
}

func (s *stubStore) GetTenantByAuthToken(_ context.Context, token string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.AuthToken == token })
}

func (s *stubStore) GetReplacedPropertyID(_ context.Context, _, propertyID string) (string, error) {
	return propertyID, nil
}

func (s *stubStore) TouchTenantRefreshedAt(_ context.Context, tenantID string) (*tenant.Tenant, error) {
	for i := range s.tenants {
		if s.tenants[i].ID == tenantID {
			s.tenants[i].RefreshedAt = time.Now()
			t := s.tenants[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	return s.tenants, nil
}

func testHandlers(t *testing.T, tenants ...tenant.Tenant) *rshttp.Handlers {
	t.Helper()
	tokens, err := service.NewTokenService(config.Auth{
		JWTSecret:     "test-secret",
		EncryptionKey: strings.Repeat("ab", 32),
		TokenExpiry:   time.Hour,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return &rshttp.Handlers{
		Tenants: service.NewTenantService(&stubStore{tenants: tenants}, nil, time.Minute, nil),
		Tokens:  tokens,
	}
}

func requestAs(rc *reqctx.Context, method, path string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	return req.WithContext(reqctx.With(req.Context(), rc))
}

func TestMeReportsPipelineState(t *testing.T) {
	h := testHandlers(t)

	req := requestAs(&reqctx.Context{
		TenantID:   "t1",
		TenantName: "acme",
		Credential: &auth.Credential{UserID: "u1", PropertyID: "p1"},
	}, "GET", "/api/v1/me", "")

	result, err := h.Me(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	me, ok := result.Content.(map[string]any)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content)
	}
	if me["tenantId"] != "t1" || me["userId"] != "u1" || me["propertyId"] != "p1" {
		t.Fatalf("unexpected me payload: %v", me)
	}
}

func TestWebsiteRedirectsToTenantSite(t *testing.T) {
	h := testHandlers(t, tenant.Tenant{
		ID:       "t1",
		Name:     "acme",
		Settings: map[string]string{"website": "https://www.acme.com"},
	})

	req := requestAs(&reqctx.Context{TenantID: "t1"}, "GET", "/api/v1/website", "")
	result, err := h.Website(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != rshttp.ResultRedirect || result.RedirectTo != "https://www.acme.com" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWebsiteWithoutTenantRejected(t *testing.T) {
	h := testHandlers(t)

	req := requestAs(&reqctx.Context{}, "GET", "/api/v1/website", "")
	if _, err := h.Website(req); err == nil {
		t.Fatal("expected error without tenant context")
	}
}

func TestListTenantsAdminOnly(t *testing.T) {
	h := testHandlers(t, tenant.Tenant{ID: "t1", Name: "acme"})

	req := requestAs(&reqctx.Context{TenantID: "t1"}, "GET", "/api/v1/tenants", "")
	_, err := h.ListTenants(req)
	var de *domain.Error
	if !errors.As(err, &de) || de.Token != domain.TokenUnauthorized {
		t.Fatalf("expected UNAUTHORIZED for non-admin, got %v", err)
	}

	req = requestAs(&reqctx.Context{TenantID: tenant.Admin.ID}, "GET", "/api/v1/tenants", "")
	result, err := h.ListTenants(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != rshttp.ResultJSON {
		t.Fatalf("unexpected result type %s", result.Type)
	}
}

func TestExportTenantsStreamsCSV(t *testing.T) {
	h := testHandlers(t, tenant.Tenant{ID: "t1", Name: "acme"})

	req := requestAs(&reqctx.Context{TenantID: tenant.Admin.ID}, "GET", "/api/v1/tenants/export", "")
	result, err := h.ExportTenants(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != rshttp.ResultStream || result.Filename != "tenants.csv" {
		t.Fatalf("unexpected result: %+v", result)
	}

	rec := httptest.NewRecorder()
	rshttp.WriteResult(rec, req, result)
	if !strings.Contains(rec.Body.String(), "acme") {
		t.Fatalf("expected csv row, got %s", rec.Body.String())
	}
}

func TestScreeningWebhookRequiresWebhookAuth(t *testing.T) {
	h := testHandlers(t)

	req := requestAs(&reqctx.Context{}, "POST", "/api/v1/webhooks/screening", "")
	if _, err := h.ScreeningWebhook(req); err == nil {
		t.Fatal("expected rejection without webhook auth")
	}

	req = requestAs(&reqctx.Context{IsWebhookRequest: true}, "POST", "/api/v1/webhooks/screening", "")
	result, err := h.ScreeningWebhook(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != rshttp.ResultXML {
		t.Fatalf("expected xml ack, got %s", result.Type)
	}
}

func TestIssueTokenInternalOnly(t *testing.T) {
	h := testHandlers(t, tenant.Tenant{
		ID:          "t1",
		Name:        "acme",
		RefreshedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	body := `{"tenantId":"t1","userId":"u1"}`

	req := requestAs(&reqctx.Context{}, "POST", "/api/v1/internal/tokens", body)
	if _, err := h.IssueToken(req); err == nil {
		t.Fatal("expected rejection outside internal surface")
	}

	req = requestAs(&reqctx.Context{IsInternalRequest: true}, "POST", "/api/v1/internal/tokens", body)
	result, err := h.IssueToken(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload, ok := result.Content.(map[string]string)
	if !ok || payload["token"] == "" {
		t.Fatalf("expected token payload, got %+v", result.Content)
	}

	cred, err := h.Tokens.Decode(payload["token"])
	if err != nil {
		t.Fatalf("decode issued token: %v", err)
	}
	if cred.TenantID != "t1" || cred.UserID != "u1" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.TenantRefreshedAt == "" {
		t.Fatal("expected live refresh marker stamped")
	}
}

func TestIssueTokenRequiresTenantID(t *testing.T) {
	h := testHandlers(t)

	req := requestAs(&reqctx.Context{IsInternalRequest: true}, "POST", "/api/v1/internal/tokens", `{"userId":"u1"}`)
	if _, err := h.IssueToken(req); err == nil {
		t.Fatal("expected rejection without tenantId")
	}
}
