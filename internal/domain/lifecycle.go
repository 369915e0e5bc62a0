package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// LifecycleHandler drives a connection from handshake to close:
// Authenticate (connecting), Admit (authenticated, then active),
// JoinRoom/LeaveRoom (active) and Close (closed).
type LifecycleHandler struct {
	authenticator *Authenticator
	sessions      SessionStore
	resolver      *MembershipResolver

	mu      sync.RWMutex
	closing bool
}

func NewLifecycleHandler(authenticator *Authenticator, sessions SessionStore, resolver *MembershipResolver) *LifecycleHandler {
	return &LifecycleHandler{
		authenticator: authenticator,
		sessions:      sessions,
		resolver:      resolver,
	}
}

func (h *LifecycleHandler) Authenticate(ctx context.Context, credential string) (Identity, error) {
	identity, err := h.authenticator.Authenticate(ctx, credential)
	if err != nil {
		return Identity{}, fmt.Errorf("authenticator.Authenticate: %w", err)
	}

	return identity, nil
}

// Admit registers a connection for an authenticated identity. A previous
// connection of the same user stays open but is no longer reachable.
// Once Shutdown has started, Admit refuses with ErrShuttingDown.
func (h *LifecycleHandler) Admit(ctx context.Context, identity Identity, messenger Messenger) (*Connection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closing {
		return nil, ErrShuttingDown
	}

	conn := NewConnection(identity, messenger)

	if previous := h.sessions.Put(identity.UserID, conn); previous != nil {
		slog.InfoContext(ctx, "connection superseded", "user_id", identity.UserID, "previous", previous.ID, "current", conn.ID)
	}

	slog.DebugContext(ctx, "connection admitted", "user_id", identity.UserID, "connection_id", conn.ID, "connected_users", h.sessions.Len())
	return conn, nil
}

// JoinRoom subscribes the connection to a room and reports whether the user
// is a member of it. Joining grants nothing: only members receive room events.
func (h *LifecycleHandler) JoinRoom(ctx context.Context, conn *Connection, room Room) (bool, error) {
	if err := h.ensureActive(conn); err != nil {
		return false, err
	}

	if err := room.Validate(); err != nil {
		return false, err
	}

	member, err := h.resolver.IsMember(ctx, room, conn.Identity.UserID)
	if err != nil {
		return false, fmt.Errorf("resolver.IsMember: %w", err)
	}

	conn.Join(room)
	return member, nil
}

// LeaveRoom drops the room from the connection's subscriptions and
// acknowledges it. Room delivery follows membership, so a member who left
// keeps receiving the room's events until the membership itself changes.
func (h *LifecycleHandler) LeaveRoom(ctx context.Context, conn *Connection, room Room) error {
	if err := h.ensureActive(conn); err != nil {
		return err
	}

	if err := room.Validate(); err != nil {
		return err
	}

	conn.Leave(room)
	return nil
}

// Close is safe to call any number of times; only the first call releases
// the registry entry, and only if it still points at this connection.
func (h *LifecycleHandler) Close(ctx context.Context, conn *Connection) error {
	first, err := conn.close()
	if !first {
		return nil
	}

	if h.sessions.Remove(conn.Identity.UserID, conn) {
		slog.DebugContext(ctx, "connection removed", "user_id", conn.Identity.UserID, "connection_id", conn.ID)
	} else {
		slog.DebugContext(ctx, "stale connection closed", "user_id", conn.Identity.UserID, "connection_id", conn.ID)
	}

	if err != nil {
		return fmt.Errorf("messenger.Close: %w", err)
	}

	return nil
}

// Shutdown tells every registered client the server is going away, then
// closes its connection. Frames already queued are flushed before the close.
func (h *LifecycleHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	conns := h.sessions.All()

	slog.DebugContext(ctx, "notifying connected users of shutdown", "connected_users", len(conns))

	var lastErr error
	for _, conn := range conns {
		if err := conn.notifyClosing(ctx); err != nil {
			slog.ErrorContext(ctx, "error sending server closing notification", "user_id", conn.Identity.UserID, "error", err)
			lastErr = fmt.Errorf("messenger.SendServerClosingNotification: %w", err)
		}

		if err := h.Close(ctx, conn); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

func (h *LifecycleHandler) ensureActive(conn *Connection) error {
	if conn.Closed() {
		return ErrConnectionClosed
	}

	current, ok := h.sessions.Get(conn.Identity.UserID)
	if !ok || current != conn {
		return ErrConnectionSuperseded
	}

	return nil
}
