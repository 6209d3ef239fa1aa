// Package ristretto implements the tenant cache port using dgraph-io/ristretto.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/reside-hq/reside/internal/domain/tenant"
)

// Cache is an in-process TTL cache of resolved tenant rows.
type Cache struct {
	c *ristretto.Cache[string, *tenant.Tenant]
}

// New creates a ristretto-backed tenant cache. maxCostBytes is the maximum
// total size of cached rows in bytes; each row is charged a flat nominal cost.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *tenant.Tenant]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// tenantCost is the flat cost charged per cached row. Tenant rows are small
// and roughly uniform; sizing them individually is not worth the bookkeeping.
const tenantCost = 1024

// Get returns the cached tenant for key, if present.
func (c *Cache) Get(_ context.Context, key string) (*tenant.Tenant, bool) {
	return c.c.Get(key)
}

// Set stores a tenant under key with the given TTL. The write is flushed
// before returning so a resolution immediately after a refresh event sees
// the new row.
func (c *Cache) Set(_ context.Context, key string, t *tenant.Tenant, ttl time.Duration) {
	c.c.SetWithTTL(key, t, tenantCost, ttl)
	c.c.Wait()
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.c.Del(key)
	}
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
