// Package cache defines the port interface for the in-process tenant cache.
//
// Tenant rows are read on every request; the cache bounds that load with an
// explicit, injected object and a TTL invalidation policy instead of
// module-level state.
package cache

import (
	"context"
	"time"

	"github.com/reside-hq/reside/internal/domain/tenant"
)

// TenantCache is the port interface for caching resolved tenants.
// Implementations are safe for concurrent use.
type TenantCache interface {
	// Get returns the cached tenant for key, if present and not expired.
	Get(ctx context.Context, key string) (*tenant.Tenant, bool)

	// Set stores a tenant under key for at most ttl.
	Set(ctx context.Context, key string, t *tenant.Tenant, ttl time.Duration)

	// Invalidate drops the given keys. Used when a tenant refresh or merge
	// event arrives.
	Invalidate(ctx context.Context, keys ...string)
}
