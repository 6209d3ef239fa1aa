package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	rshttp "github.com/reside-hq/reside/internal/adapter/http"
	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/adapter/postgres"
	"github.com/reside-hq/reside/internal/adapter/ristretto"
	"github.com/reside-hq/reside/internal/adapter/ws"
	"github.com/reside-hq/reside/internal/config"
	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/middleware"
	"github.com/reside-hq/reside/internal/secrets"
	"github.com/reside-hq/reside/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"default_tenant", cfg.Tenancy.DefaultTenantName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownTracer, err := rsotel.InitTracer(ctx, cfg.Logging.Service, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	metrics, err := rsotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	tenantCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer tenantCache.Close()

	// --- Services ---

	store := postgres.NewStore(pool)
	tenantSvc := service.NewTenantService(store, tenantCache, cfg.Cache.TenantTTL, metrics)
	tokenSvc, err := service.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	hub := ws.NewHub()

	apiTokens, err := secrets.NewStore(secrets.EnvLoader(cfg.Tokens))
	if err != nil {
		return fmt.Errorf("api tokens: %w", err)
	}

	// Tenant events from other nodes drop the local cache entry and fan out
	// to the tenant's live WebSocket sessions.
	listener := postgres.NewListener(pool, func(ctx context.Context, ev postgres.TenantEvent) {
		tenantSvc.Invalidate(ctx, ev.TenantID, ev.TenantName)
		hub.BroadcastTenant(ctx, ev.TenantID, ev.Event, ev)
	})

	// --- HTTP ---

	handlers := &rshttp.Handlers{
		Tenants: tenantSvc,
		Tokens:  tokenSvc,
		Hub:     hub,
	}

	r := chi.NewRouter()

	r.Use(rshttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rshttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(rsotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/health", healthHandler(pool, hub))

	rshttp.MountRoutes(r, handlers, cfg, apiTokens, metrics)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return listener.Run(gctx)
	})

	g.Go(func() error {
		return apiTokens.WatchHangup(gctx)
	})

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthHandler reports service health: database reachability and the number
// of live WebSocket sessions.
func healthHandler(pool *pgxpool.Pool, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Postgres    string `json:"postgres"`
		Connections int    `json:"wsConnections"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Status:      "ok",
			Postgres:    "ok",
			Connections: hub.ConnectionCount(),
		}
		if err := pool.Ping(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
