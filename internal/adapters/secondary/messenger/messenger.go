package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/gorilla/websocket"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClosed         = errors.New("messenger closed")
)

type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PingPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}

	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}

	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}

	return o
}

// Messenger owns the write side of a websocket. Every frame goes through a
// single pump goroutine because gorilla connections allow one writer only.
type Messenger struct {
	conn *websocket.Conn
	opts Options

	send   chan []byte
	done   chan struct{}
	closed bool
	once   sync.Once
	mu     sync.RWMutex
}

func NewMessenger(conn *websocket.Conn, opts Options) *Messenger {
	opts = opts.withDefaults()

	m := &Messenger{
		conn: conn,
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}

	go m.writePump()

	return m
}

func (m *Messenger) SendMessage(ctx context.Context, envelope domain.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	return m.enqueue(payload)
}

func (m *Messenger) SendServerClosingNotification(ctx context.Context) error {
	envelope := domain.NewEnvelope(domain.EventServerClosing, map[string]string{"message": "server is closing"})

	slog.DebugContext(ctx, "sending server closing notification", "event_kind", envelope.EventKind)

	if err := m.SendMessage(ctx, envelope); err != nil {
		slog.ErrorContext(ctx, "failed to send server closing", "error", err)
		return fmt.Errorf("m.SendMessage: %w", err)
	}

	return nil
}

// Close stops accepting frames. Queued frames are flushed before the pump
// sends a close frame and releases the socket.
func (m *Messenger) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.send)
		m.mu.Unlock()
	})

	return nil
}

// Done is closed once the pump has released the socket.
func (m *Messenger) Done() <-chan struct{} {
	return m.done
}

func (m *Messenger) enqueue(payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (m *Messenger) writePump() {
	ticker := time.NewTicker(m.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = m.conn.Close()
		close(m.done)
	}()

	for {
		select {
		case payload, ok := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(m.opts.WriteWait))
			if !ok {
				_ = m.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := m.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("error writing frame", "remote", m.conn.RemoteAddr().String(), "error", err)
				return
			}
		case <-ticker.C:
			_ = m.conn.SetWriteDeadline(time.Now().Add(m.opts.WriteWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("error writing ping", "remote", m.conn.RemoteAddr().String(), "error", err)
				return
			}
		}
	}
}
