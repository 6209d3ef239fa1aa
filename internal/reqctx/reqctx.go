// Package reqctx carries per-request derived state through the middleware
// pipeline. The value is immutable once stored: each stage derives a new
// value instead of mutating the request, keeping the data flow auditable.
package reqctx

import (
	"context"

	"github.com/reside-hq/reside/internal/domain/auth"
)

// Context is the per-request state resolved by the pipeline. It is created
// when a request enters the pipeline and discarded when the response is
// written; it is never persisted.
type Context struct {
	TenantID       string
	TenantName     string
	MergedTenantID string
	RefreshedAt    string
	IsTraining     bool
	HasRCToken     bool

	Credential *auth.Credential
	UserID     string

	IsWebhookRequest  bool
	IsInternalRequest bool

	// Cacheable opts a route into client caching; everything else is served
	// with Cache-Control: private, no-cache.
	Cacheable bool
}

type ctxKey struct{}

// With returns a context carrying rc.
func With(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From returns the pipeline state stored in ctx, or an empty value if the
// request never passed through the pipeline.
func From(ctx context.Context) *Context {
	if rc, ok := ctx.Value(ctxKey{}).(*Context); ok {
		return rc
	}
	return &Context{}
}

// WithCredential derives a copy of rc carrying cred.
func (rc *Context) WithCredential(cred *auth.Credential) *Context {
	out := *rc
	out.Credential = cred
	if cred != nil {
		out.UserID = cred.UserID
	}
	return &out
}

// CredentialTenantID returns the tenant id embedded in the credential, or "".
func (rc *Context) CredentialTenantID() string {
	if rc.Credential == nil {
		return ""
	}
	return rc.Credential.TenantID
}
