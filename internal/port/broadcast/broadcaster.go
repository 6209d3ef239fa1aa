// Package broadcast defines the port for pushing real-time events to
// connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to connected clients. Delivery is
// best-effort: a slow or gone client never blocks the publisher.
type Broadcaster interface {
	// BroadcastTenant sends a typed event to every client of a tenant.
	BroadcastTenant(ctx context.Context, tenantID, eventType string, payload any)

	// BroadcastUsers sends a typed event to specific users within a tenant.
	BroadcastUsers(ctx context.Context, tenantID string, userIDs []string, eventType string, payload any)
}
