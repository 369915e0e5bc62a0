package store

import (
	"sync"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
)

// MemorySessionStore maps each user to its single live connection.
type MemorySessionStore struct {
	connections map[uuid.UUID]*domain.Connection
	sync.RWMutex
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		connections: make(map[uuid.UUID]*domain.Connection),
	}
}

// Put installs conn for userID and returns the connection it replaced, if any.
func (s *MemorySessionStore) Put(userID uuid.UUID, conn *domain.Connection) *domain.Connection {
	s.Lock()
	defer s.Unlock()

	previous := s.connections[userID]
	s.connections[userID] = conn

	if previous == conn {
		return nil
	}

	return previous
}

func (s *MemorySessionStore) Get(userID uuid.UUID) (*domain.Connection, bool) {
	s.RLock()
	defer s.RUnlock()

	conn, ok := s.connections[userID]
	return conn, ok
}

// Remove deletes the entry only while it still points at conn, so a late
// disconnect of a superseded connection leaves the newer one in place.
func (s *MemorySessionStore) Remove(userID uuid.UUID, conn *domain.Connection) bool {
	s.Lock()
	defer s.Unlock()

	current, ok := s.connections[userID]
	if !ok || current != conn {
		return false
	}

	delete(s.connections, userID)
	return true
}

func (s *MemorySessionStore) All() []*domain.Connection {
	s.RLock()
	defer s.RUnlock()

	connections := make([]*domain.Connection, 0, len(s.connections))
	for _, conn := range s.connections {
		connections = append(connections, conn)
	}

	return connections
}

func (s *MemorySessionStore) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.connections)
}
