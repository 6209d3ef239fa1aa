package http

import (
	"github.com/go-chi/chi/v5"

	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/middleware"
)

// openPaths bypass bearer authentication entirely.
var openPaths = middleware.MustPathSet(
	"/health",
	"/api/v1/website",
	"/api/v1/webhooks/.*",
	"/api/v1/internal/.*",
)

// commonUserPaths is the allow-list for resident-portal credentials
// (credentials carrying a common-user id).
var commonUserPaths = middleware.MustPathSet(
	"/api/v1/me",
	"/api/v1/tenants/current",
	"/api/v1/website",
)

// webhookPaths authorize with the shared api token; internalPaths with the
// internal token. The "screening" webhook posts with a fixed hostname, which
// is why its tenant name sits on the tenancy ignore list.
var (
	webhookPaths  = middleware.MustTokenPathSet("api", "/api/v1/webhooks/.*")
	internalPaths = middleware.MustTokenPathSet("internal_api", "/api/v1/internal/.*")
)

// MountRoutes registers the pipeline and all API routes on the given router.
// tokens may be nil, in which case the statically configured api tokens apply.
func MountRoutes(r chi.Router, h *Handlers, cfg *config.Config, tokens middleware.TokenSource, metrics *rsotel.Metrics) {
	resolver := h.Tenants
	if tokens == nil {
		tokens = cfg.Tokens
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantAuthToken(resolver))
		r.Use(middleware.WebhookAuth(resolver, cfg.Tenancy, tokens, webhookPaths))
		r.Use(middleware.InternalAuth(resolver, cfg.Tenancy, tokens, internalPaths))
		r.Use(middleware.Auth(h.Tokens, openPaths, metrics))
		r.Use(middleware.CommonUserPaths(commonUserPaths))
		r.Use(middleware.Tenant(resolver, cfg.Tenancy, metrics))
		r.Use(middleware.Session(resolver))
		r.Use(Logger)

		if h.Hub != nil {
			r.Get("/ws", h.Hub.HandleWS)
		}

		r.Get("/me", Handler(h.Me))
		r.Get("/website", Handler(h.Website))
		r.Get("/tenants/current", Handler(h.CurrentTenant))

		// Admin surface
		r.Get("/tenants", Handler(h.ListTenants))
		r.Post("/tenants/{tenantID}/refresh", Handler(h.RefreshTenant))
		r.Get("/tenants/export", Handler(h.ExportTenants))

		// Internal surface (api-token guarded via internalPaths)
		r.Post("/internal/tokens", Handler(h.IssueToken))

		// Webhook surface (api-token guarded via webhookPaths)
		r.Post("/webhooks/screening", Handler(h.ScreeningWebhook))

		r.NotFound(NotFound)
	})

	r.NotFound(NotFound)
}
