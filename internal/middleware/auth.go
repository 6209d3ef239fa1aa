package middleware

import (
	"net/http"

	"github.com/google/uuid"

	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/auth"
	"github.com/reside-hq/reside/internal/reqctx"
)

// TokenDecoder verifies a bearer token and decrypts its credential payload.
type TokenDecoder interface {
	Decode(token string) (*auth.Credential, error)
}

// Auth returns middleware that authenticates the bearer token and stores the
// decoded credential in the request context for the tenant guard to verify.
// It deliberately does not finalize the tenant context itself: the tenant id
// inside the credential still has to be cross-checked against the URL.
//
// Paths in openPaths bypass authentication entirely. Requests already
// resolved by an earlier stage (tenant auth token, webhook or internal
// api-token) pass through untouched.
func Auth(tokens TokenDecoder, openPaths *PathSet, metrics *rsotel.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.From(r.Context())
			if rc.TenantID != "" || rc.IsWebhookRequest || rc.IsInternalRequest {
				next.ServeHTTP(w, r)
				return
			}

			// Open paths skip authentication wholesale, even when the request
			// carries a token the decoder would reject (a stale provisioning
			// ?token= for example).
			if openPaths.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeError(w, r, domain.ErrUnauthorized())
				return
			}

			cred, err := tokens.Decode(token)
			if err != nil {
				if metrics != nil {
					metrics.TokensRejected.Add(r.Context(), 1)
				}
				writeError(w, r, domain.AsError(err))
				return
			}
			if metrics != nil {
				metrics.TokensDecoded.Add(r.Context(), 1)
			}

			ctx := reqctx.With(r.Context(), rc.WithCredential(cred))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CommonUserPaths returns middleware that restricts credentials carrying a
// common-user id (resident portal sessions) to an allow-list of paths.
func CommonUserPaths(userPaths *PathSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.From(r.Context())
			if rc.Credential == nil || rc.Credential.CommonUserID == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := uuid.Parse(rc.Credential.CommonUserID); err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !userPaths.Match(r.URL.Path) {
				writeError(w, r, domain.ErrUnauthorized())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
