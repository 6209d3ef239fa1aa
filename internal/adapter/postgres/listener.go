package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantEvent is a notification published on the tenant_events channel when a
// tenant is refreshed, renamed or merged.
type TenantEvent struct {
	Event      string `json:"event"`
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
}

// Listener receives tenant_events notifications over a dedicated connection
// and delivers them to a handler. The write path (tenant refresh/merge) is
// administrative; the listener is how the serving path learns about it.
type Listener struct {
	pool    *pgxpool.Pool
	handler func(context.Context, TenantEvent)
}

// NewListener creates a Listener delivering events to handler.
func NewListener(pool *pgxpool.Pool, handler func(context.Context, TenantEvent)) *Listener {
	return &Listener{pool: pool, handler: handler}
}

// Run blocks listening for notifications until ctx is cancelled. The
// connection is re-established with a flat backoff after errors.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("tenant event listener reconnecting", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `LISTEN tenant_events`); err != nil {
		return fmt.Errorf("listen tenant_events: %w", err)
	}

	for {
		note, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var ev TenantEvent
		if err := json.Unmarshal([]byte(note.Payload), &ev); err != nil {
			slog.Warn("malformed tenant event payload", "payload", note.Payload, "error", err)
			continue
		}
		l.handler(ctx, ev)
	}
}
