// Package auth defines the decoded bearer credential carried by requests.
package auth

// Credential is the decrypted payload of a bearer token. It binds the caller
// to a tenant, a user, and optionally a property and team memberships.
type Credential struct {
	TenantID          string   `json:"tenantId"`
	UserID            string   `json:"userId,omitempty"`
	PropertyID        string   `json:"propertyId,omitempty"`
	TeamIDs           []string `json:"teamIds,omitempty"`
	TenantRefreshedAt string   `json:"tenantRefreshedAt,omitempty"`
	CommonUserID      string   `json:"commonUserId,omitempty"`
	DecisionServiceID string   `json:"decisionServiceId,omitempty"`
}

// Valid reports whether the credential identifies at least a tenant.
func (c *Credential) Valid() bool {
	return c != nil && c.TenantID != ""
}
