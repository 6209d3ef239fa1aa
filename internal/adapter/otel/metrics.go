package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reside"

// Metrics holds the pipeline metric instruments.
type Metrics struct {
	TenantResolutions  metric.Int64Counter
	TenantMismatches   metric.Int64Counter
	TenantRefreshes    metric.Int64Counter
	TokensDecoded      metric.Int64Counter
	TokensRejected     metric.Int64Counter
	CacheInvalidations metric.Int64Counter
	ResolveDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TenantResolutions, err = meter.Int64Counter("reside.tenant.resolutions",
		metric.WithDescription("Number of tenant resolutions"))
	if err != nil {
		return nil, err
	}

	m.TenantMismatches, err = meter.Int64Counter("reside.tenant.mismatches",
		metric.WithDescription("Number of tenant name mismatch rejections"))
	if err != nil {
		return nil, err
	}

	m.TenantRefreshes, err = meter.Int64Counter("reside.tenant.refreshes",
		metric.WithDescription("Number of stale-token rejections after a tenant refresh"))
	if err != nil {
		return nil, err
	}

	m.TokensDecoded, err = meter.Int64Counter("reside.tokens.decoded",
		metric.WithDescription("Number of access tokens decoded"))
	if err != nil {
		return nil, err
	}

	m.TokensRejected, err = meter.Int64Counter("reside.tokens.rejected",
		metric.WithDescription("Number of access tokens rejected"))
	if err != nil {
		return nil, err
	}

	m.CacheInvalidations, err = meter.Int64Counter("reside.cache.invalidations",
		metric.WithDescription("Number of tenant cache invalidations"))
	if err != nil {
		return nil, err
	}

	m.ResolveDuration, err = meter.Float64Histogram("reside.tenant.resolve_duration_seconds",
		metric.WithDescription("Tenant resolution duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
