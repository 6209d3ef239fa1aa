package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/domain/tenant"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tenantColumns = `id, name, auth_token, refreshed_at, settings, metadata, created_at, updated_at`

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// scanTenant scans a tenant row, decoding the settings and metadata JSONB
// columns and deriving the training flag.
func scanTenant(row scannable) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var settingsJSON, metadataJSON []byte
	if err := row.Scan(&t.ID, &t.Name, &t.AuthToken, &t.RefreshedAt,
		&settingsJSON, &metadataJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if settingsJSON != nil {
		_ = json.Unmarshal(settingsJSON, &t.Settings)
	}
	if metadataJSON != nil {
		_ = json.Unmarshal(metadataJSON, &t.Metadata)
	}
	t.IsTraining = t.Settings["isTrainingTenant"] == "true"
	return &t, nil
}

// GetTenantByID resolves a tenant by current id or a previous id recorded
// after a merge.
func (s *Store) GetTenantByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE id = $1
		    OR metadata->'previousTenantNames' @> jsonb_build_array(jsonb_build_object('id', $1::text))`,
		id)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return t, nil
}

// GetTenantByName resolves a tenant by current name or a previous name
// recorded after a rename.
func (s *Store) GetTenantByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE name = $1
		    OR metadata->'previousTenantNames' @> jsonb_build_array(jsonb_build_object('name', $1::text))`,
		name)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant by name %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant by name %s: %w", name, err)
	}
	return t, nil
}

// GetTenantByAuthToken resolves a tenant by its provisioning auth token,
// current or historical.
func (s *Store) GetTenantByAuthToken(ctx context.Context, token string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE auth_token = $1
		    OR metadata->'previousTenantNames' @> jsonb_build_array(jsonb_build_object('authToken', $1::text))`,
		token)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant by auth token: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant by auth token: %w", err)
	}
	return t, nil
}

// GetReplacedPropertyID returns the live property id for a property that may
// have been relocated during a tenant merge. Replacements are single-hop: a
// merge records the mapping once and never chains.
func (s *Store) GetReplacedPropertyID(ctx context.Context, tenantID, propertyID string) (string, error) {
	var newID string
	err := s.pool.QueryRow(ctx,
		`SELECT new_property_id FROM property_merges
		 WHERE tenant_id = $1 AND old_property_id = $2`,
		tenantID, propertyID).Scan(&newID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return propertyID, nil
		}
		return "", fmt.Errorf("get replaced property %s: %w", propertyID, err)
	}
	return newID, nil
}

// TouchTenantRefreshedAt bumps the tenant refresh marker and notifies
// listeners, invalidating every previously issued credential for that tenant.
func (s *Store) TouchTenantRefreshedAt(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE tenants SET refreshed_at = now(), updated_at = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		tenantID)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("touch tenant %s: %w", tenantID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("touch tenant %s: %w", tenantID, err)
	}

	payload, _ := json.Marshal(map[string]string{"event": "tenant_refreshed", "tenantId": t.ID, "tenantName": t.Name})
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify('tenant_events', $1)`, string(payload)); err != nil {
		return nil, fmt.Errorf("notify tenant refresh %s: %w", tenantID, err)
	}
	return t, nil
}

// ListTenants returns all tenants ordered by creation time.
func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}
