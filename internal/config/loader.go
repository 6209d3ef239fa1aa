package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "reside.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RESIDE_PORT")
	setString(&cfg.Server.CORSOrigin, "RESIDE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RESIDE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RESIDE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RESIDE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RESIDE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RESIDE_PG_HEALTH_CHECK")
	setString(&cfg.Auth.JWTSecret, "RESIDE_JWT_SECRET")
	setString(&cfg.Auth.EncryptionKey, "RESIDE_ENCRYPTION_KEY")
	setDuration(&cfg.Auth.TokenExpiry, "RESIDE_TOKEN_EXPIRY")
	setStrings(&cfg.Tenancy.LocalHostPrefixes, "RESIDE_LOCAL_HOST_PREFIXES")
	setString(&cfg.Tenancy.APIPort, "RESIDE_API_PORT")
	setStrings(&cfg.Tenancy.IgnoredTenantNames, "RESIDE_IGNORED_TENANT_NAMES")
	setString(&cfg.Tenancy.DefaultTenantName, "RESIDE_DEFAULT_TENANT")
	setString(&cfg.Tenancy.TestTenantID, "RESIDE_TEST_TENANT_ID")
	setString(&cfg.Tenancy.TestTenantName, "RESIDE_TEST_TENANT")
	setString(&cfg.Tokens.API, "RESIDE_API_TOKEN")
	setString(&cfg.Tokens.InternalAPI, "RESIDE_INTERNAL_API_TOKEN")
	setInt64(&cfg.Cache.MaxSizeMB, "RESIDE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TenantTTL, "RESIDE_CACHE_TENANT_TTL")
	setString(&cfg.Logging.Level, "RESIDE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RESIDE_LOG_SERVICE")
	setBool(&cfg.Tracing.Enabled, "RESIDE_TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "RESIDE_TRACING_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if key, err := hex.DecodeString(cfg.Auth.EncryptionKey); err != nil || len(key) != 32 {
		return errors.New("auth.encryption_key must be 32 hex-encoded bytes")
	}
	if cfg.Tenancy.DefaultTenantName == "" {
		return errors.New("tenancy.default_tenant_name is required")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
