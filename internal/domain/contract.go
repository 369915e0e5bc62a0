package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SessionStore interface {
	Put(userID uuid.UUID, conn *Connection) *Connection
	Get(userID uuid.UUID) (*Connection, bool)
	Remove(userID uuid.UUID, conn *Connection) bool
	All() []*Connection
	Len() int
}

type Messenger interface {
	SendMessage(ctx context.Context, envelope Envelope) error
	SendServerClosingNotification(ctx context.Context) error
	Close() error
}

type MembershipStore interface {
	MembersOf(ctx context.Context, kind RoomKind, roomID uuid.UUID) ([]uuid.UUID, error)
}

type UserDirectory interface {
	ResolveUser(ctx context.Context, userID uuid.UUID) (User, error)
}

type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

type TokenVerifier interface {
	Verify(token string) (Claims, error)
}
