package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errTransport = errors.New("transport error")

// recordingMessenger keeps every envelope pushed to it.
type recordingMessenger struct {
	envelopes []domain.Envelope
	closing   int
	closed    int
	sendErr   error
	mu        sync.Mutex
}

func (m *recordingMessenger) SendMessage(_ context.Context, envelope domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	m.envelopes = append(m.envelopes, envelope)
	return nil
}

func (m *recordingMessenger) SendServerClosingNotification(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closing++
	return nil
}

func (m *recordingMessenger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed++
	return nil
}

func (m *recordingMessenger) Received() []domain.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.Envelope(nil), m.envelopes...)
}

func (m *recordingMessenger) Kinds() []domain.EventKind {
	kinds := make([]domain.EventKind, 0)
	for _, e := range m.Received() {
		kinds = append(kinds, e.EventKind)
	}

	return kinds
}

func (m *recordingMessenger) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *recordingMessenger) ClosingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closing
}

func identity(name string) domain.Identity {
	return domain.Identity{UserID: uuid.New(), Username: name}
}

// admit registers a connection and fails the test if it is refused.
func admit(t *testing.T, lifecycle *domain.LifecycleHandler, user domain.Identity, messenger domain.Messenger) *domain.Connection {
	t.Helper()

	conn, err := lifecycle.Admit(context.Background(), user, messenger)
	require.NoError(t, err)

	return conn
}
