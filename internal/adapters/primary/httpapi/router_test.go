package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/adapters/primary/httpapi"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []domain.Event
	err    error
	mu     sync.Mutex
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, e)
	return nil
}

type fixedCounter int

func (c fixedCounter) Len() int {
	return int(c)
}

func newRouter(publisher httpapi.EventPublisher, key string) *gin.Engine {
	ws := func(c *gin.Context) { c.Status(http.StatusTeapot) }
	return httpapi.NewRouter(ws, httpapi.NewHandler(publisher, fixedCounter(3), key))
}

func postEvent(r http.Handler, body string, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Internal-Key", key)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	t.Run("it should report the connected users", func(t *testing.T) {
		t.Parallel()

		r := newRouter(&recordingPublisher{}, "")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"status":"ok","connected_users":3}`, w.Body.String())
	})

	t.Run("it should mount the websocket handler", func(t *testing.T) {
		t.Parallel()

		r := newRouter(&recordingPublisher{}, "")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

		require.Equal(t, http.StatusTeapot, w.Code)
	})
}

func TestRouter_PublishEvent(t *testing.T) {
	t.Parallel()

	receiver := uuid.New()
	body := `{"kind":"like.created","receiver":"` + receiver.String() + `","payload":{"post":"p-1"}}`

	t.Run("it should put an accepted event on the bus", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		w := postEvent(newRouter(publisher, "secret"), body, "secret")

		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, publisher.events, 1)
		require.Equal(t, domain.EventLikeCreated, publisher.events[0].Kind)
		require.Equal(t, receiver, *publisher.events[0].Receiver)
		require.False(t, publisher.events[0].OccurredAt.IsZero())
	})

	t.Run("it should require the internal key", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		r := newRouter(publisher, "secret")

		require.Equal(t, http.StatusUnauthorized, postEvent(r, body, "").Code)
		require.Equal(t, http.StatusUnauthorized, postEvent(r, body, "wrong").Code)
		require.Empty(t, publisher.events)
	})

	t.Run("it should refuse an event that cannot be routed", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		r := newRouter(publisher, "secret")

		require.Equal(t, http.StatusBadRequest, postEvent(r, `{"kind":"like.created"}`, "secret").Code)
		require.Equal(t, http.StatusBadRequest, postEvent(r, `{"kind":"user.deleted"}`, "secret").Code)
		require.Equal(t, http.StatusBadRequest, postEvent(r, `not json`, "secret").Code)
		require.Empty(t, publisher.events)
	})

	t.Run("it should answer 503 when the bus is unavailable", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{err: errors.New("redis: connection refused")}

		require.Equal(t, http.StatusServiceUnavailable, postEvent(newRouter(publisher, "secret"), body, "secret").Code)
	})

	t.Run("it should answer 503 once the bus is closed", func(t *testing.T) {
		t.Parallel()

		bus := domain.NewEventBus(1)
		bus.Close()

		require.Equal(t, http.StatusServiceUnavailable, postEvent(newRouter(bus, "secret"), body, "secret").Code)
	})

	t.Run("it should not serve the ingest endpoint without an internal key", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		handler := httpapi.NewHandler(publisher, fixedCounter(0), "")
		r := httpapi.NewRouter(func(c *gin.Context) {}, handler)

		require.False(t, handler.IngestEnabled())
		require.Equal(t, http.StatusNotFound, postEvent(r, body, "").Code)
		require.Equal(t, http.StatusNotFound, postEvent(r, body, "anything").Code)
		require.Empty(t, publisher.events)
	})
}
