package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/logger"

	"github.com/reside-hq/reside/internal/domain"
)

// TenantResolver is the slice of the tenant service the pipeline needs.
type TenantResolver interface {
	ByID(ctx context.Context, id string) (*tenant.Tenant, error)
	ByName(ctx context.Context, name string) (*tenant.Tenant, error)
	ByAuthToken(ctx context.Context, token string) (*tenant.Tenant, error)
	ReplacedPropertyID(ctx context.Context, tenantID, propertyID string) (string, error)
}

// errorBody is the uniform failure shape surfaced by the pipeline.
type errorBody struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// writeError terminates the request with a {token, message} JSON body.
func writeError(w http.ResponseWriter, r *http.Request, e *domain.Error) {
	slog.Info("pipeline rejection",
		"token", e.Token,
		"status", e.Status,
		"path", r.URL.Path,
		"request_id", logger.RequestID(r.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	if err := json.NewEncoder(w).Encode(errorBody{Token: e.Token, Message: e.Message}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

// bearerToken extracts the credential from the Authorization header or the
// token query parameter (the latter is how WebSocket clients authenticate).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// maxBodyPeek bounds how much of a request body the tenant fallback reads.
const maxBodyPeek = 1 << 20

// bodyTenant peeks at a JSON request body for an explicit tenant field,
// restoring the body for downstream handlers. Used only for non-qualified
// hosts (local development and inbound email routing).
func bodyTenant(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	if err != nil {
		return ""
	}
	// Stitch the unread tail back on so bodies beyond the peek limit reach
	// the handler intact.
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), r.Body))

	var body struct {
		Tenant string `json:"tenant"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Tenant
}
