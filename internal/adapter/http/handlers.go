package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reside-hq/reside/internal/adapter/ws"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/auth"
	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/reqctx"
	"github.com/reside-hq/reside/internal/service"
)

// Handlers bundles the services the HTTP surface depends on.
type Handlers struct {
	Tenants *service.TenantService
	Tokens  *service.TokenService
	Hub     *ws.Hub
}

// Me returns the resolved request context: the caller's tenant binding and
// credential identity after the pipeline ran.
func (h *Handlers) Me(r *http.Request) (*Result, error) {
	rc := reqctx.From(r.Context())

	me := map[string]any{
		"tenantId":   rc.TenantID,
		"tenantName": rc.TenantName,
	}
	if rc.MergedTenantID != "" {
		me["mergedTenantId"] = rc.MergedTenantID
	}
	if rc.IsTraining {
		me["isTrainingTenant"] = true
	}
	if cred := rc.Credential; cred != nil {
		me["userId"] = cred.UserID
		if cred.PropertyID != "" {
			me["propertyId"] = cred.PropertyID
		}
		if len(cred.TeamIDs) > 0 {
			me["teamIds"] = cred.TeamIDs
		}
	}
	return &Result{Type: ResultJSON, Content: me}, nil
}

// CurrentTenant returns the resolved tenant row for the request.
func (h *Handlers) CurrentTenant(r *http.Request) (*Result, error) {
	rc := reqctx.From(r.Context())
	if rc.TenantID == "" {
		return nil, domain.ErrInvalidTenant()
	}
	t, err := h.Tenants.ByID(r.Context(), rc.TenantID)
	if err != nil {
		return nil, err
	}
	return &Result{Type: ResultJSON, Content: t}, nil
}

// Website redirects to the tenant's configured public site. A tenant without
// one gets a 404-class failure, never a redirect to an empty target.
func (h *Handlers) Website(r *http.Request) (*Result, error) {
	rc := reqctx.From(r.Context())
	if rc.TenantID == "" {
		return nil, domain.ErrInvalidTenant()
	}
	t, err := h.Tenants.ByID(r.Context(), rc.TenantID)
	if err != nil {
		return nil, err
	}
	return &Result{Type: ResultRedirect, RedirectTo: t.Settings["website"]}, nil
}

// --- Admin surface (reserved super-tenant only) ---

// requireAdmin rejects callers outside the reserved super-tenant.
func requireAdmin(r *http.Request) error {
	if reqctx.From(r.Context()).TenantID != tenant.Admin.ID {
		return domain.ErrUnauthorized()
	}
	return nil
}

// ListTenants returns all tenants.
func (h *Handlers) ListTenants(r *http.Request) (*Result, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	tenants, err := h.Tenants.List(r.Context())
	if err != nil {
		return nil, err
	}
	return &Result{Type: ResultJSON, Content: map[string]any{"tenants": tenants}}, nil
}

// RefreshTenant bumps a tenant's refresh marker, forcing every outstanding
// credential for it to be rejected with TENANT_REFRESHED.
func (h *Handlers) RefreshTenant(r *http.Request) (*Result, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	t, err := h.Tenants.Refresh(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		return nil, err
	}
	return &Result{Type: ResultJSON, Content: t}, nil
}

// ExportTenants streams the tenant roster as CSV.
func (h *Handlers) ExportTenants(r *http.Request) (*Result, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	tenants, err := h.Tenants.List(r.Context())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("id,name,refreshed_at\n")
	for _, t := range tenants {
		fmt.Fprintf(&buf, "%s,%s,%s\n", t.ID, t.Name, t.RefreshedAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return &Result{
		Type:       ResultStream,
		Stream:     &buf,
		Filename:   "tenants.csv",
		Headers:    map[string]string{"Content-Type": "text/csv"},
		StatusCode: http.StatusOK,
	}, nil
}

// ScreeningWebhook accepts an applicant-screening callback. The provider
// posts with a fixed hostname, so the tenant context may be absent here; the
// payload itself carries the tenant routing.
func (h *Handlers) ScreeningWebhook(r *http.Request) (*Result, error) {
	rc := reqctx.From(r.Context())
	if !rc.IsWebhookRequest {
		return nil, domain.ErrUnauthorized()
	}
	return &Result{Type: ResultXML, Content: `<Response>OK</Response>`}, nil
}

// IssueToken mints a bearer token for the given credential. Internal surface:
// reachable only through the internal api-token path list.
func (h *Handlers) IssueToken(r *http.Request) (*Result, error) {
	rc := reqctx.From(r.Context())
	if !rc.IsInternalRequest && rc.TenantID != tenant.Admin.ID {
		return nil, domain.ErrUnauthorized()
	}

	var cred auth.Credential
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(&cred); err != nil {
		return nil, domain.NewError(domain.TokenGenericError, http.StatusBadRequest, "invalid request body")
	}
	if !cred.Valid() {
		return nil, domain.NewError(domain.TokenGenericError, http.StatusBadRequest, "tenantId is required")
	}

	// Stamp the live refresh marker so the token survives until the next
	// tenant-level settings change.
	if t, err := h.Tenants.ByID(r.Context(), cred.TenantID); err == nil {
		cred.TenantRefreshedAt = t.RefreshMarker()
	}

	token, err := h.Tokens.Issue(&cred)
	if err != nil {
		return nil, err
	}
	return &Result{Type: ResultJSON, Content: map[string]string{"token": token}}, nil
}
