package middleware

import (
	"errors"
	"net"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/reqctx"
)

// hostLabelSplit separates the first label of a host from the rest.
var hostLabelSplit = regexp.MustCompile(`[:.]`)

// isFullyQualifiedHost reports whether host is eligible for subdomain-based
// tenant extraction. Assume a host is fully qualified unless it matches a
// local/loopback prefix or the local API host:port form.
func isFullyQualifiedHost(host string, tenancy config.Tenancy) bool {
	if host == "" {
		return false
	}
	for _, prefix := range tenancy.LocalHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return false
		}
	}
	return !isLocalAPIHost(host, tenancy.APIPort)
}

// isLocalAPIHost matches a bare IP or undotted hostname carrying the local
// API port, e.g. "192.168.0.4:3030".
func isLocalAPIHost(host, apiPort string) bool {
	if apiPort == "" {
		return false
	}
	name, port, err := net.SplitHostPort(host)
	if err != nil || port != apiPort {
		return false
	}
	return net.ParseIP(name) != nil || !strings.Contains(name, ".")
}

// detectTenantName resolves the tenant name implied by the request URL. For
// fully qualified hosts it is the first dot-or-colon-delimited host label.
// Non-qualified (local/dev) hosts fall back, in priority order, to the
// request body, the tenant query parameter, the test-tenant binding of the
// credential, and finally the configured default test tenant.
func detectTenantName(r *http.Request, rc *reqctx.Context, tenancy config.Tenancy) string {
	host := r.Host
	if isFullyQualifiedHost(host, tenancy) {
		return hostLabelSplit.Split(host, 2)[0]
	}

	if name := bodyTenant(r); name != "" {
		return name
	}
	if name := r.URL.Query().Get("tenant"); name != "" {
		return name
	}
	if rc.Credential != nil {
		if tenancy.TestTenantID != "" && rc.Credential.TenantID == tenancy.TestTenantID {
			return tenancy.TestTenantName
		}
		// Decision-service callbacks carry no tenant host at all.
		if rc.Credential.DecisionServiceID != "" {
			return ""
		}
	}
	return tenancy.DefaultTenantName
}

// enhance derives the request context stamped with the resolved tenant.
// requestedID is the tenant id the request originally carried; when it is a
// historical id absorbed by a merge, the merged-tenant id is recorded so
// downstream lookups can consult pre-merge data.
func enhance(rc *reqctx.Context, t *tenant.Tenant, requestedID string) *reqctx.Context {
	out := *rc
	out.TenantID = t.ID
	out.TenantName = t.Name
	out.RefreshedAt = t.RefreshMarker()
	out.HasRCToken = t.HasRCToken()

	if requestedID == "" {
		requestedID = t.ID
	}
	if alias, ok := t.AliasByID(requestedID); ok {
		out.MergedTenantID = alias.ID
	}

	if !t.IsAdmin() {
		out.IsTraining = t.IsTraining
		if rc.Credential != nil && rc.Credential.TenantID != t.ID {
			// Credential was issued before a merge; rebind it to the live id.
			cred := *rc.Credential
			cred.TenantID = t.ID
			out.Credential = &cred
		}
	}
	return &out
}

// Tenant returns the tenant resolution and consistency guard middleware.
//
// The tenant id embedded in the credential is authoritative; the name derived
// from the URL is informational. A credential whose refresh marker no longer
// matches the tenant row is stale (TENANT_REFRESHED); a URL name that is
// neither the tenant's canonical name nor a recorded alias forces a logout
// (TENANT_NAME_MISMATCH). Unresolvable tenants are INVALID_TENANT.
func Tenant(resolver TenantResolver, tenancy config.Tenancy, metrics *rsotel.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.From(r.Context())

			// Already resolved by an earlier stage (tenant auth token or
			// api-token path); there is no credential to cross-check.
			if rc.TenantID != "" && rc.Credential == nil {
				next.ServeHTTP(w, r)
				return
			}

			requestedID := rc.CredentialTenantID()
			if requestedID == "" {
				requestedID = rc.TenantID
			}
			tenantName := detectTenantName(r, rc, tenancy)

			// The reserved super-tenant resolves without a store lookup.
			if tenantName == tenant.Admin.Name || requestedID == tenant.Admin.ID {
				ctx := reqctx.With(r.Context(), enhance(rc, &tenant.Admin, ""))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Shared endpoints (screening webhooks post with a fixed host)
			// are exempt from name validation.
			skipValidation := slices.Contains(tenancy.IgnoredTenantNames, tenantName)

			serve := func(t *tenant.Tenant) {
				if !skipValidation {
					if rc.Credential != nil && rc.Credential.TenantRefreshedAt != "" &&
						rc.Credential.TenantRefreshedAt != t.RefreshMarker() {
						if metrics != nil {
							metrics.TenantRefreshes.Add(r.Context(), 1)
						}
						writeError(w, r, domain.ErrTenantRefreshed())
						return
					}
					if tenantName != "" && !strings.EqualFold(t.Name, tenantName) && !t.HasAliasName(tenantName) {
						if metrics != nil {
							metrics.TenantMismatches.Add(r.Context(), 1)
						}
						logger.FromContext(r.Context()).Info("tenant name mismatch",
							"tenant_name_from_url", tenantName,
							"tenant_name_from_token", t.Name,
						)
						writeError(w, r, domain.ErrTenantNameMismatch())
						return
					}
				}
				ctx := reqctx.With(r.Context(), enhance(rc, t, requestedID))
				next.ServeHTTP(w, r.WithContext(ctx))
			}

			fail := func(err error) {
				if errors.Is(err, domain.ErrNotFound) {
					logger.FromContext(r.Context()).Warn("tenant detection failed",
						"tenant_id", requestedID,
						"tenant_name", tenantName,
					)
					writeError(w, r, domain.ErrInvalidTenant())
					return
				}
				// Store outages must not take every request down with them;
				// proceed without a tenant context and let the handler decide.
				logger.FromContext(r.Context()).Error("error looking up tenant", "error", err)
				next.ServeHTTP(w, r)
			}

			if requestedID != "" {
				t, err := resolver.ByID(r.Context(), requestedID)
				if err != nil {
					fail(err)
					return
				}
				serve(t)
				return
			}

			if skipValidation {
				next.ServeHTTP(w, r)
				return
			}

			t, err := resolver.ByName(r.Context(), tenantName)
			if err != nil {
				fail(err)
				return
			}
			serve(t)
		})
	}
}

// TenantAuthToken returns middleware that resolves the tenant from a
// provisioning auth token passed as ?token=<uuid>. Used by shared endpoints
// that authenticate with a tenant-scoped token instead of a user credential.
func TenantAuthToken(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := uuid.Parse(token); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			t, err := resolver.ByAuthToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					logger.FromContext(r.Context()).Error("error resolving tenant auth token", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			rc := reqctx.From(r.Context())
			ctx := reqctx.With(r.Context(), enhance(rc, t, ""))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
