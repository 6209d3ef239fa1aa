// Package secrets provides a hot-reloadable source for the static api tokens
// guarding webhook and internal endpoints. Tokens can be rotated by updating
// the environment and sending SIGHUP, without dropping live connections.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/reside-hq/reside/internal/config"
)

// Loader retrieves the current token set, keyed by token name.
type Loader func() (map[string]string, error)

// Store holds the api tokens in memory and supports atomic reloading.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	load   Loader
}

// NewStore creates a Store, calling the loader once for the initial tokens.
func NewStore(load Loader) (*Store, error) {
	values, err := load()
	if err != nil {
		return nil, fmt.Errorf("initial token load: %w", err)
	}
	return &Store{values: values, load: load}, nil
}

// Lookup returns the token configured under name, or "" when unknown.
func (s *Store) Lookup(name string) string {
	if name == "internal" {
		name = "internal_api"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Reload swaps in a fresh token set. On loader failure the current tokens
// are kept.
func (s *Store) Reload() error {
	values, err := s.load()
	if err != nil {
		return fmt.Errorf("reload tokens: %w", err)
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// WatchHangup reloads the tokens on SIGHUP until ctx is cancelled.
func (s *Store) WatchHangup(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			if err := s.Reload(); err != nil {
				slog.Warn("api token reload failed", "error", err)
				continue
			}
			slog.Info("api tokens reloaded")
		}
	}
}

// EnvLoader reads the api tokens from the environment, falling back to the
// statically configured values for anything unset.
func EnvLoader(fallback config.Tokens) Loader {
	return func() (map[string]string, error) {
		tokens := map[string]string{
			"api":          fallback.API,
			"internal_api": fallback.InternalAPI,
		}
		if v := os.Getenv("RESIDE_API_TOKEN"); v != "" {
			tokens["api"] = v
		}
		if v := os.Getenv("RESIDE_INTERNAL_API_TOKEN"); v != "" {
			tokens["internal_api"] = v
		}
		return tokens, nil
	}
}
