package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventMessageCreated        EventKind = "message.created"
	EventConversationCreated   EventKind = "conversation.created"
	EventConversationJoined    EventKind = "conversation.joined"
	EventConversationLeft      EventKind = "conversation.left"
	EventCommentCreated        EventKind = "comment.created"
	EventForumEventCreated     EventKind = "forum.event_created"
	EventLikeCreated           EventKind = "like.created"
	EventNotificationCreated   EventKind = "notification.created"
	EventFriendRequestCreated  EventKind = "friend_request.created"
	EventFriendRequestAccepted EventKind = "friend_request.accepted"
	EventForumRequestCreated   EventKind = "forum_request.created"
	EventForumRequestApproved  EventKind = "forum_request.approved"
)

// Kinds pushed by the gateway itself rather than routed from the write path.
const (
	EventRoomJoined    EventKind = "room.joined"
	EventRoomLeft      EventKind = "room.left"
	EventPong          EventKind = "pong"
	EventError         EventKind = "error"
	EventServerClosing EventKind = "server.closing"
)

type Delivery int

const (
	DeliveryDirect Delivery = iota + 1
	DeliveryRoom
)

type MembershipEffect int

const (
	EffectNone MembershipEffect = iota
	EffectJoin
	EffectLeave
)

type route struct {
	delivery Delivery
	effect   MembershipEffect
}

var routes = map[EventKind]route{
	EventMessageCreated:        {delivery: DeliveryRoom},
	EventConversationCreated:   {delivery: DeliveryRoom, effect: EffectJoin},
	EventConversationJoined:    {delivery: DeliveryRoom, effect: EffectJoin},
	EventConversationLeft:      {delivery: DeliveryRoom, effect: EffectLeave},
	EventCommentCreated:        {delivery: DeliveryRoom},
	EventForumEventCreated:     {delivery: DeliveryRoom},
	EventLikeCreated:           {delivery: DeliveryDirect},
	EventNotificationCreated:   {delivery: DeliveryDirect},
	EventFriendRequestCreated:  {delivery: DeliveryDirect},
	EventFriendRequestAccepted: {delivery: DeliveryDirect},
	EventForumRequestCreated:   {delivery: DeliveryDirect},
	EventForumRequestApproved:  {delivery: DeliveryDirect, effect: EffectJoin},
}

func (k EventKind) Routable() bool {
	_, ok := routes[k]
	return ok
}

func (k EventKind) Delivery() Delivery {
	return routes[k].delivery
}

func (k EventKind) Effect() MembershipEffect {
	return routes[k].effect
}

// Event is a fact emitted by the write path after a commit. Room is the
// broadcast scope for room deliveries, Receiver the target of direct ones.
// Members lists the users a membership side effect applies to; for direct
// deliveries the receiver is the implicit member.
type Event struct {
	Kind       EventKind       `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Room       *Room           `json:"room,omitempty"`
	Receiver   *uuid.UUID      `json:"receiver,omitempty"`
	Members    []uuid.UUID     `json:"members,omitempty"`
	Actor      *uuid.UUID      `json:"actor,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewRoomEvent(kind EventKind, room Room, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("json.Marshal: %w", err)
	}

	return Event{Kind: kind, Payload: raw, Room: &room, OccurredAt: time.Now()}, nil
}

func NewDirectEvent(kind EventKind, receiver uuid.UUID, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("json.Marshal: %w", err)
	}

	return Event{Kind: kind, Payload: raw, Receiver: &receiver, OccurredAt: time.Now()}, nil
}

func (e Event) Validate() error {
	if !e.Kind.Routable() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}

	if e.Room != nil {
		if err := e.Room.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}

	switch e.Kind.Delivery() {
	case DeliveryRoom:
		if e.Room == nil {
			return fmt.Errorf("%w: %s requires a room", ErrInvalidEvent, e.Kind)
		}
	case DeliveryDirect:
		if e.Receiver == nil || *e.Receiver == uuid.Nil {
			return fmt.Errorf("%w: %s requires a receiver", ErrInvalidEvent, e.Kind)
		}
	}

	return nil
}

// ScopeKey groups events that must be delivered in emission order.
func (e Event) ScopeKey() string {
	if e.Kind.Delivery() == DeliveryRoom && e.Room != nil {
		return e.Room.Key()
	}

	if e.Receiver != nil {
		return "user:" + e.Receiver.String()
	}

	return string(e.Kind)
}

func (e Event) Envelope() Envelope {
	return Envelope{EventKind: e.Kind, Payload: e.Payload}
}

// Envelope is the typed frame pushed to a client.
type Envelope struct {
	EventKind EventKind       `json:"eventKind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(kind EventKind, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}

	return Envelope{EventKind: kind, Payload: raw}
}

func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("%w: json.Unmarshal: %w", ErrInvalidEvent, err)
	}

	if err := e.Validate(); err != nil {
		return Event{}, err
	}

	return e, nil
}
