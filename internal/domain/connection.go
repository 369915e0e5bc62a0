package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is one live channel to a client. Its identity is fixed at
// admission; the joined rooms are a local subscription, not an authorization.
type Connection struct {
	ID          uuid.UUID
	Identity    Identity
	ConnectedAt time.Time

	messenger Messenger
	rooms     map[string]Room
	closed    bool
	closeOnce sync.Once
	sync.RWMutex
}

func NewConnection(identity Identity, messenger Messenger) *Connection {
	return &Connection{
		ID:          uuid.New(),
		Identity:    identity,
		ConnectedAt: time.Now(),
		messenger:   messenger,
		rooms:       make(map[string]Room),
	}
}

func (c *Connection) Join(room Room) bool {
	c.Lock()
	defer c.Unlock()

	if _, ok := c.rooms[room.Key()]; ok {
		return false
	}

	c.rooms[room.Key()] = room
	return true
}

func (c *Connection) Leave(room Room) bool {
	c.Lock()
	defer c.Unlock()

	if _, ok := c.rooms[room.Key()]; !ok {
		return false
	}

	delete(c.rooms, room.Key())
	return true
}

func (c *Connection) InRoom(room Room) bool {
	c.RLock()
	defer c.RUnlock()

	_, ok := c.rooms[room.Key()]
	return ok
}

func (c *Connection) Rooms() []Room {
	c.RLock()
	defer c.RUnlock()

	rooms := make([]Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}

	return rooms
}

func (c *Connection) Closed() bool {
	c.RLock()
	defer c.RUnlock()

	return c.closed
}

func (c *Connection) Push(ctx context.Context, envelope Envelope) error {
	if c.Closed() {
		return ErrConnectionClosed
	}

	if err := c.messenger.SendMessage(ctx, envelope); err != nil {
		return fmt.Errorf("messenger.SendMessage: %w", err)
	}

	return nil
}

func (c *Connection) notifyClosing(ctx context.Context) error {
	if c.Closed() {
		return nil
	}

	return c.messenger.SendServerClosingNotification(ctx)
}

// close marks the connection closed and releases the transport. It reports
// whether this call was the one that closed it.
func (c *Connection) close() (bool, error) {
	var (
		first bool
		err   error
	)

	c.closeOnce.Do(func() {
		c.Lock()
		c.closed = true
		c.rooms = make(map[string]Room)
		c.Unlock()

		first = true
		err = c.messenger.Close()
	})

	return first, err
}
