package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/messenger"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LifecycleHandler interface {
	Authenticate(ctx context.Context, credential string) (domain.Identity, error)
	Admit(ctx context.Context, identity domain.Identity, messenger domain.Messenger) (*domain.Connection, error)
	JoinRoom(ctx context.Context, conn *domain.Connection, room domain.Room) (bool, error)
	LeaveRoom(ctx context.Context, conn *domain.Connection, room domain.Room) error
	Close(ctx context.Context, conn *domain.Connection) error
}

type Options struct {
	MaxMessageSize int64
	PongWait       time.Duration
	AllowedOrigins []string
	Messenger      messenger.Options
}

const (
	ActionJoinRoom  = "joinRoom"
	ActionLeaveRoom = "leaveRoom"
	ActionPing      = "ping"
)

// Action is a client to server frame.
type Action struct {
	Action string       `json:"action"`
	Room   *domain.Room `json:"room,omitempty"`
}

type Handler struct {
	lifecycle LifecycleHandler
	opts      Options
	upgrader  websocket.Upgrader
	origins   map[string]struct{}
}

func NewHandler(lifecycle LifecycleHandler, opts Options) *Handler {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 4096
	}

	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}

	h := &Handler{
		lifecycle: lifecycle,
		opts:      opts,
		origins:   make(map[string]struct{}, len(opts.AllowedOrigins)),
	}

	for _, origin := range opts.AllowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			h.origins[origin] = struct{}{}
		}
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// Serve authenticates the handshake before upgrading: a refused client gets
// a plain HTTP error and never reaches the session registry.
func (h *Handler) Serve(c *gin.Context) {
	ctx := c.Request.Context()

	identity, err := h.lifecycle.Authenticate(ctx, Credential(c.Request))
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, domain.ErrUnauthorized) {
			status = http.StatusUnauthorized
		}

		slog.InfoContext(ctx, "connection refused", "remote", c.ClientIP(), "status", status, "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.InfoContext(ctx, "websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}

	m := messenger.NewMessenger(ws, h.opts.Messenger)

	conn, err := h.lifecycle.Admit(ctx, identity, m)
	if err != nil {
		slog.InfoContext(ctx, "connection not admitted", "user_id", identity.UserID, "error", err)
		_ = m.SendServerClosingNotification(ctx)
		_ = m.Close()
		return
	}

	defer func() {
		if err := h.lifecycle.Close(context.WithoutCancel(ctx), conn); err != nil {
			slog.ErrorContext(ctx, "error closing connection", "user_id", identity.UserID, "error", err)
		}
	}()

	h.readLoop(ctx, ws, conn)
}

// Credential takes the bearer token from the Authorization header, or from
// the token query parameter for browsers that cannot set headers.
func Credential(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		return authz
	}

	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conn *domain.Connection) {
	ws.SetReadLimit(h.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.InfoContext(ctx, "unexpected websocket close", "user_id", conn.Identity.UserID, "error", err)
			}

			return
		}

		_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		reply := h.handleAction(ctx, conn, data)
		if err := conn.Push(ctx, reply); err != nil {
			slog.DebugContext(ctx, "error replying to client", "user_id", conn.Identity.UserID, "error", err)
		}
	}
}

func (h *Handler) handleAction(ctx context.Context, conn *domain.Connection, data []byte) domain.Envelope {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return errorEnvelope("malformed action")
	}

	switch action.Action {
	case ActionPing:
		return domain.NewEnvelope(domain.EventPong, map[string]int64{"serverTime": time.Now().UnixMilli()})
	case ActionJoinRoom:
		if action.Room == nil {
			return errorEnvelope("room is required")
		}

		member, err := h.lifecycle.JoinRoom(ctx, conn, *action.Room)
		if err != nil {
			slog.DebugContext(ctx, "join refused", "user_id", conn.Identity.UserID, "room", action.Room.Key(), "error", err)
			return errorEnvelope(err.Error())
		}

		return domain.NewEnvelope(domain.EventRoomJoined, map[string]any{"room": action.Room, "member": member})
	case ActionLeaveRoom:
		if action.Room == nil {
			return errorEnvelope("room is required")
		}

		if err := h.lifecycle.LeaveRoom(ctx, conn, *action.Room); err != nil {
			return errorEnvelope(err.Error())
		}

		return domain.NewEnvelope(domain.EventRoomLeft, map[string]any{"room": action.Room})
	default:
		slog.DebugContext(ctx, "unknown action", "user_id", conn.Identity.UserID, "action", action.Action)
		return errorEnvelope("unknown action")
	}
}

func errorEnvelope(message string) domain.Envelope {
	return domain.NewEnvelope(domain.EventError, map[string]string{"message": message})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	_, ok := h.origins[normalizeOrigin(origin)]
	return ok
}

func normalizeOrigin(origin string) string {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return strings.ToLower(u.Scheme + "://" + u.Host)
}
