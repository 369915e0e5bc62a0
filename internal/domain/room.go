package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type RoomKind string

const (
	RoomKindConversation RoomKind = "conversation"
	RoomKindForum        RoomKind = "forum"
	RoomKindEvent        RoomKind = "event"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindConversation, RoomKindForum, RoomKindEvent:
		return true
	default:
		return false
	}
}

// Room is a broadcast scope. It is never stored: who belongs to it is read
// from the membership store whenever something is delivered to it.
type Room struct {
	Kind RoomKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func NewRoom(kind RoomKind, id uuid.UUID) Room {
	return Room{Kind: kind, ID: id}
}

func (r Room) Key() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

func (r Room) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRoom, r.Kind)
	}

	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: empty id", ErrInvalidRoom)
	}

	return nil
}

func (r Room) String() string {
	return r.Key()
}
