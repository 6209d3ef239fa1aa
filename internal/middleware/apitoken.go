package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/reqctx"
)

// TokenSource supplies the static api tokens by name. config.Tokens covers
// the static case; secrets.Store adds hot reloading.
type TokenSource interface {
	Lookup(name string) string
}

// apiTokenAuth authorizes path-pattern lists against the ?api-token= query
// parameter. A matched path with a valid token resolves the tenant by
// detected name and flags the request; an invalid token is rejected.
// Unmatched paths pass through untouched.
func apiTokenAuth(resolver TenantResolver, tenancy config.Tenancy, tokens TokenSource,
	paths *TokenPathSet, mark func(*reqctx.Context)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenName, matched := paths.Match(r.URL.Path)
			if !matched {
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.URL.Query().Get("api-token")
			expected := tokens.Lookup(tokenName)
			if expected == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
				writeError(w, r, domain.ErrUnauthorized())
				return
			}

			rc := reqctx.From(r.Context())
			out := rc

			name := detectTenantName(r, rc, tenancy)
			if t, err := resolver.ByName(r.Context(), name); err == nil {
				out = enhance(rc, t, "")
			} else if !errors.Is(err, domain.ErrNotFound) {
				logger.FromContext(r.Context()).Error("error resolving tenant for api-token request", "error", err)
			}

			marked := *out
			mark(&marked)
			next.ServeHTTP(w, r.WithContext(reqctx.With(r.Context(), &marked)))
		})
	}
}

// WebhookAuth authorizes external webhook paths with the shared api token.
func WebhookAuth(resolver TenantResolver, tenancy config.Tenancy, tokens TokenSource, paths *TokenPathSet) func(http.Handler) http.Handler {
	return apiTokenAuth(resolver, tenancy, tokens, paths, func(rc *reqctx.Context) {
		rc.IsWebhookRequest = true
	})
}

// InternalAuth authorizes service-to-service paths with the internal api token.
func InternalAuth(resolver TenantResolver, tenancy config.Tenancy, tokens TokenSource, paths *TokenPathSet) func(http.Handler) http.Handler {
	return apiTokenAuth(resolver, tenancy, tokens, paths, func(rc *reqctx.Context) {
		rc.IsInternalRequest = true
	})
}
