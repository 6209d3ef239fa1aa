// Package database defines the port interface for tenant persistence.
package database

import (
	"context"

	"github.com/reside-hq/reside/internal/domain/tenant"
)

// Store is the port interface for the tenant data store. Lookups by name, id
// and auth token all match historical aliases recorded in tenant metadata, so
// credentials issued before a rename or merge still resolve.
type Store interface {
	// GetTenantByID resolves a tenant by its current id or a previous id
	// recorded after a merge. Returns domain.ErrNotFound on a miss.
	GetTenantByID(ctx context.Context, id string) (*tenant.Tenant, error)

	// GetTenantByName resolves a tenant by its current name or a previous
	// name recorded after a rename. Returns domain.ErrNotFound on a miss.
	GetTenantByName(ctx context.Context, name string) (*tenant.Tenant, error)

	// GetTenantByAuthToken resolves a tenant by its provisioning auth token,
	// current or historical. Returns domain.ErrNotFound on a miss.
	GetTenantByAuthToken(ctx context.Context, token string) (*tenant.Tenant, error)

	// GetReplacedPropertyID returns the live property id for a property that
	// may have been relocated during a tenant merge. When no replacement is
	// recorded the input id is returned unchanged.
	GetReplacedPropertyID(ctx context.Context, tenantID, propertyID string) (string, error)

	// TouchTenantRefreshedAt bumps the tenant refresh marker, invalidating
	// every previously issued credential for that tenant.
	TouchTenantRefreshedAt(ctx context.Context, tenantID string) (*tenant.Tenant, error)

	// ListTenants returns all tenants (admin surface).
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
}
