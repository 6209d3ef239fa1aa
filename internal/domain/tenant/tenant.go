// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"net/http"
	"strings"
	"time"
)

// Admin is the reserved super-tenant. It is resolved without a store lookup;
// its name can never be claimed as a customer subdomain.
var Admin = Tenant{
	ID:   "00000000-0000-0000-0000-000000000000",
	Name: "admin",
}

// PreviousTenant records a historical identity of a tenant left behind by a
// rename or a merge. Credentials issued under the old identity still resolve
// through these aliases.
type PreviousTenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AuthToken string `json:"authToken,omitempty"`
}

// Metadata holds tenant feature flags and historical identities.
type Metadata struct {
	PreviousTenantNames []PreviousTenant `json:"previousTenantNames,omitempty"`
	RingCentral         map[string]any   `json:"ringCentral,omitempty"`
}

// Tenant represents an isolated customer account.
type Tenant struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	AuthToken   string            `json:"authToken,omitempty"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	Settings    map[string]string `json:"settings,omitempty"`
	Metadata    Metadata          `json:"metadata,omitempty"`
	IsTraining  bool              `json:"isTrainingTenant,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsAdmin reports whether t is the reserved super-tenant.
func (t *Tenant) IsAdmin() bool {
	return t.Name == Admin.Name || t.ID == Admin.ID
}

// RefreshMarker returns the invalidation marker embedded into issued
// credentials. A credential whose marker no longer equals the live marker is
// stale and must be rejected.
func (t *Tenant) RefreshMarker() string {
	if t.RefreshedAt.IsZero() {
		return ""
	}
	return t.RefreshedAt.UTC().Format(http.TimeFormat)
}

// HasAliasName reports whether name is a recorded historical name of t.
// Host-derived names arrive with client-controlled casing, so the comparison
// folds case.
func (t *Tenant) HasAliasName(name string) bool {
	for _, prev := range t.Metadata.PreviousTenantNames {
		if strings.EqualFold(prev.Name, name) {
			return true
		}
	}
	return false
}

// AliasByID returns the historical identity matching id, if any.
func (t *Tenant) AliasByID(id string) (PreviousTenant, bool) {
	for _, prev := range t.Metadata.PreviousTenantNames {
		if prev.ID == id {
			return prev, true
		}
	}
	return PreviousTenant{}, false
}

// HasRCToken reports whether a RingCentral integration is configured.
func (t *Tenant) HasRCToken() bool {
	return len(t.Metadata.RingCentral) > 0
}
