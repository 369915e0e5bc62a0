package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/gin-gonic/gin"
)

const internalKeyHeader = "X-Internal-Key"

type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

type SessionCounter interface {
	Len() int
}

type Handler struct {
	publisher   EventPublisher
	sessions    SessionCounter
	internalKey string
}

func NewHandler(publisher EventPublisher, sessions SessionCounter, internalKey string) *Handler {
	return &Handler{
		publisher:   publisher,
		sessions:    sessions,
		internalKey: internalKey,
	}
}

// NewRouter mounts the internal ingest endpoint only when an internal key is
// configured; without one, /internal does not exist on the public listener.
func NewRouter(ws gin.HandlerFunc, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ws", ws)
	r.GET("/healthz", h.Health)

	if h.internalKey != "" {
		internal := r.Group("/internal", h.requireInternalKey)
		internal.POST("/events", h.PublishEvent)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"connected_users": h.sessions.Len(),
	})
}

// PublishEvent lets a write path that cannot reach the bus hand over an
// event. It answers once the event is on the bus, not once it is delivered.
func (h *Handler) PublishEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	e, err := domain.DecodeEvent(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	if err := h.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "error publishing event", "kind", e.Kind, "error", err)

		status := http.StatusServiceUnavailable
		if errors.Is(err, domain.ErrInvalidEvent) {
			status = http.StatusBadRequest
		}

		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "kind": e.Kind})
}

// IngestEnabled reports whether POST /internal/events is served.
func (h *Handler) IngestEnabled() bool {
	return h.internalKey != ""
}

func (h *Handler) requireInternalKey(c *gin.Context) {
	key := c.GetHeader(internalKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.internalKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	c.Next()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
