// Package service contains the application services behind the request
// pipeline: tenant resolution and bearer-token handling.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/tenant"
	"github.com/reside-hq/reside/internal/port/cache"
	"github.com/reside-hq/reside/internal/port/database"
	"github.com/reside-hq/reside/internal/resilience"
)

// Breaker thresholds for tenant store lookups. Five straight store errors
// (misses excluded) open the breaker for ten seconds.
const (
	breakerTrip     = 5
	breakerCooldown = 10 * time.Second
)

// TenantService resolves tenants by id, name and auth token, fronted by an
// injected TTL cache. Every lookup is alias-aware (see database.Store), so a
// credential issued before a rename or merge still resolves.
type TenantService struct {
	store   database.Store
	cache   cache.TenantCache
	ttl     time.Duration
	metrics *rsotel.Metrics
	breaker *resilience.Breaker
}

// NewTenantService creates a TenantService. The cache and metrics may be nil,
// in which case every resolution re-queries the store and nothing is recorded.
func NewTenantService(store database.Store, c cache.TenantCache, ttl time.Duration, m *rsotel.Metrics) *TenantService {
	return &TenantService{
		store:   store,
		cache:   c,
		ttl:     ttl,
		metrics: m,
		breaker: resilience.NewBreaker(breakerTrip, breakerCooldown),
	}
}

// ByID resolves a tenant by credential tenant id.
func (s *TenantService) ByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.resolve(ctx, "id", id, s.store.GetTenantByID)
}

// ByName resolves a tenant by the name extracted from the request host.
func (s *TenantService) ByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	return s.resolve(ctx, "name", name, s.store.GetTenantByName)
}

func (s *TenantService) resolve(ctx context.Context, kind, value string, fetch func(context.Context, string) (*tenant.Tenant, error)) (*tenant.Tenant, error) {
	key := kind + ":" + value
	if t, ok := s.cached(ctx, key); ok {
		return t, nil
	}

	ctx, span := rsotel.StartResolveSpan(ctx, kind, value)
	defer span.End()

	start := time.Now()
	var t *tenant.Tenant
	err := s.breaker.Do(func() error {
		var ferr error
		t, ferr = fetch(ctx, value)
		if errors.Is(ferr, domain.ErrNotFound) {
			// A miss is a healthy store; hold it out of the failure count.
			return nil
		}
		return ferr
	})
	if err == nil && t == nil {
		err = domain.ErrNotFound
	}
	s.record(ctx, kind, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, t)
	return t, nil
}

// ByAuthToken resolves a tenant by its provisioning auth token. Not cached:
// the token is a shared secret and lookups are rare.
func (s *TenantService) ByAuthToken(ctx context.Context, token string) (*tenant.Tenant, error) {
	return s.store.GetTenantByAuthToken(ctx, token)
}

// ReplacedPropertyID returns the live property id after a possible merge
// relocation. Falls through to the input id when no replacement is recorded.
func (s *TenantService) ReplacedPropertyID(ctx context.Context, tenantID, propertyID string) (string, error) {
	return s.store.GetReplacedPropertyID(ctx, tenantID, propertyID)
}

// Refresh bumps the tenant refresh marker, invalidating all outstanding
// credentials, and drops the tenant from the cache.
func (s *TenantService) Refresh(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	t, err := s.store.TouchTenantRefreshedAt(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, t.ID, t.Name)
	return t, nil
}

// List returns all tenants (admin surface).
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Invalidate drops a tenant from the cache by id and name. Called locally
// after a refresh and remotely when a tenant event arrives from another node.
func (s *TenantService) Invalidate(ctx context.Context, tenantID, tenantName string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, "id:"+tenantID, "name:"+tenantName)
	if s.metrics != nil {
		s.metrics.CacheInvalidations.Add(ctx, 1)
	}
	slog.Debug("tenant cache invalidated", "tenant_id", tenantID, "tenant_name", tenantName)
}

func (s *TenantService) cached(ctx context.Context, key string) (*tenant.Tenant, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, key)
}

func (s *TenantService) remember(ctx context.Context, t *tenant.Tenant) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, "id:"+t.ID, t, s.ttl)
	s.cache.Set(ctx, "name:"+t.Name, t, s.ttl)
}

func (s *TenantService) record(ctx context.Context, kind string, d time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("lookup", kind),
		attribute.String("outcome", outcome),
	)
	s.metrics.TenantResolutions.Add(ctx, 1, attrs)
	s.metrics.ResolveDuration.Record(ctx, d.Seconds(), attrs)
}
