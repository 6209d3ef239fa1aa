package middleware

import (
	"log/slog"
	"net/http"

	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/reqctx"
)

// Session returns middleware that finalizes the authenticated session after
// the tenant guard has passed. When the request's tenant was the target of a
// merge and the credential is bound to a property, the bound property may
// itself have been relocated; the live property id replaces it.
//
// Merges are asynchronous background operations, so replacement lookups are
// eventually consistent. Failures here are logged and swallowed: serving with
// a slightly stale property id beats hard-failing every request during the
// consistency window.
func Session(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.From(r.Context())
			cred := rc.Credential
			if cred == nil || rc.MergedTenantID == "" || cred.PropertyID == "" {
				next.ServeHTTP(w, r)
				return
			}

			propertyID, err := resolver.ReplacedPropertyID(r.Context(), rc.TenantID, cred.PropertyID)
			if err != nil {
				slog.Warn("property replacement lookup failed",
					"property_id", cred.PropertyID,
					"tenant_id", rc.TenantID,
					"error", err,
					"request_id", logger.RequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if propertyID != cred.PropertyID {
				slog.Debug("replacing property id after tenant merge",
					"old_property_id", cred.PropertyID,
					"property_id", propertyID,
					"request_id", logger.RequestID(r.Context()),
				)
				updated := *cred
				updated.PropertyID = propertyID
				out := rc.WithCredential(&updated)
				r = r.WithContext(reqctx.With(r.Context(), out))
			}

			next.ServeHTTP(w, r)
		})
	}
}
