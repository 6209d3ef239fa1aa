// Package ws implements the WebSocket adapter that pushes tenant events to
// connected clients. Membership is tracked per tenant and per user, so a
// tenant refresh or merge can be fanned out to exactly the sessions it
// invalidates.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/reside-hq/reside/internal/reqctx"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection and its membership.
type conn struct {
	ws       *websocket.Conn
	tenantID string
	userID   string
	cancel   context.CancelFunc
}

// Hub manages all active WebSocket connections.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*conn]struct{}
	byTenant map[string]map[*conn]struct{}
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		conns:    make(map[*conn]struct{}),
		byTenant: make(map[string]map[*conn]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket. The request must have passed
// the pipeline: connections without a resolved tenant are rejected.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.From(r.Context())
	if rc.TenantID == "" {
		http.Error(w, `{"token":"UNAUTHORIZED","message":"tenant context required"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The connection outlives the handler: net/http cancels r.Context() the
	// moment HandleWS returns, even though the socket is hijacked, so the
	// read loop runs on its own context, cancelled in remove.
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, tenantID: rc.TenantID, userID: rc.UserID, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	if h.byTenant[c.tenantID] == nil {
		h.byTenant[c.tenantID] = make(map[*conn]struct{})
	}
	h.byTenant[c.tenantID][c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected",
		"remote", r.RemoteAddr,
		"tenant_id", c.tenantID,
		"user_id", c.userID,
	)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// BroadcastTenant sends a typed event to every client of a tenant.
func (h *Hub) BroadcastTenant(ctx context.Context, tenantID, eventType string, payload any) {
	h.send(ctx, eventType, payload, func(c *conn) bool {
		return c.tenantID == tenantID
	})
}

// BroadcastUsers sends a typed event to specific users within a tenant.
func (h *Hub) BroadcastUsers(ctx context.Context, tenantID string, userIDs []string, eventType string, payload any) {
	members := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		members[id] = struct{}{}
	}
	h.send(ctx, eventType, payload, func(c *conn) bool {
		if c.tenantID != tenantID {
			return false
		}
		_, ok := members[c.userID]
		return ok
	})
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// TenantConnectionCount returns the number of active connections for a tenant.
func (h *Hub) TenantConnectionCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTenant[tenantID])
}

func (h *Hub) send(ctx context.Context, eventType string, payload any, match func(*conn) bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}
	data, err := json.Marshal(Message{Type: eventType, Payload: raw})
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !match(c) {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	if peers := h.byTenant[c.tenantID]; peers != nil {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.byTenant, c.tenantID)
		}
	}
	c.cancel()
}
