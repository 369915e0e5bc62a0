package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEventKind_Routes(t *testing.T) {
	t.Parallel()

	t.Run("it should route room kinds to rooms", func(t *testing.T) {
		t.Parallel()

		for _, kind := range []domain.EventKind{
			domain.EventMessageCreated,
			domain.EventConversationCreated,
			domain.EventConversationJoined,
			domain.EventConversationLeft,
			domain.EventCommentCreated,
			domain.EventForumEventCreated,
		} {
			require.Equal(t, domain.DeliveryRoom, kind.Delivery(), kind)
		}
	})

	t.Run("it should route direct kinds to one receiver", func(t *testing.T) {
		t.Parallel()

		for _, kind := range []domain.EventKind{
			domain.EventLikeCreated,
			domain.EventNotificationCreated,
			domain.EventFriendRequestCreated,
			domain.EventFriendRequestAccepted,
			domain.EventForumRequestCreated,
			domain.EventForumRequestApproved,
		} {
			require.Equal(t, domain.DeliveryDirect, kind.Delivery(), kind)
		}
	})

	t.Run("it should attach membership effects", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, domain.EffectJoin, domain.EventConversationCreated.Effect())
		require.Equal(t, domain.EffectJoin, domain.EventForumRequestApproved.Effect())
		require.Equal(t, domain.EffectLeave, domain.EventConversationLeft.Effect())
		require.Equal(t, domain.EffectNone, domain.EventMessageCreated.Effect())
	})

	t.Run("it should not route gateway kinds", func(t *testing.T) {
		t.Parallel()

		require.False(t, domain.EventPong.Routable())
		require.False(t, domain.EventServerClosing.Routable())
	})
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	room := domain.NewRoom(domain.RoomKindConversation, uuid.New())
	receiver := uuid.New()

	t.Run("it should require a room for room deliveries", func(t *testing.T) {
		t.Parallel()

		err := domain.Event{Kind: domain.EventMessageCreated, Receiver: &receiver}.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("it should require a receiver for direct deliveries", func(t *testing.T) {
		t.Parallel()

		err := domain.Event{Kind: domain.EventLikeCreated, Room: &room}.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidEvent)

		nilReceiver := uuid.Nil
		err = domain.Event{Kind: domain.EventLikeCreated, Receiver: &nilReceiver}.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("it should reject unknown kinds", func(t *testing.T) {
		t.Parallel()

		err := domain.Event{Kind: "user.deleted", Room: &room}.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("it should reject an invalid room", func(t *testing.T) {
		t.Parallel()

		bad := domain.NewRoom("channel", uuid.New())
		err := domain.Event{Kind: domain.EventMessageCreated, Room: &bad}.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
		require.ErrorIs(t, err, domain.ErrInvalidRoom)
	})
}

func TestEvent_ScopeKey(t *testing.T) {
	t.Parallel()

	t.Run("it should scope room events by room and direct events by receiver", func(t *testing.T) {
		t.Parallel()

		room := domain.NewRoom(domain.RoomKindForum, uuid.New())
		roomEvent, err := domain.NewRoomEvent(domain.EventCommentCreated, room, map[string]string{"body": "hi"})
		require.NoError(t, err)
		require.Equal(t, room.Key(), roomEvent.ScopeKey())

		receiver := uuid.New()
		directEvent, err := domain.NewDirectEvent(domain.EventLikeCreated, receiver, nil)
		require.NoError(t, err)
		require.Equal(t, "user:"+receiver.String(), directEvent.ScopeKey())
	})
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	t.Run("it should decode a valid event", func(t *testing.T) {
		t.Parallel()

		roomID := uuid.New()
		payload := []byte(`{"kind":"message.created","room":{"kind":"conversation","id":"` + roomID.String() + `"},"payload":{"content":"hello"}}`)

		e, err := domain.DecodeEvent(payload)
		require.NoError(t, err)
		require.Equal(t, domain.EventMessageCreated, e.Kind)
		require.Equal(t, domain.NewRoom(domain.RoomKindConversation, roomID), *e.Room)
		require.JSONEq(t, `{"content":"hello"}`, string(e.Payload))
	})

	t.Run("it should reject malformed json", func(t *testing.T) {
		t.Parallel()

		_, err := domain.DecodeEvent([]byte(`{"kind":`))
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
	})

	t.Run("it should reject an event that cannot be routed", func(t *testing.T) {
		t.Parallel()

		_, err := domain.DecodeEvent([]byte(`{"kind":"like.created"}`))
		require.ErrorIs(t, err, domain.ErrInvalidEvent)
	})
}

func TestEvent_Envelope(t *testing.T) {
	t.Parallel()

	t.Run("it should expose the kind and payload to clients", func(t *testing.T) {
		t.Parallel()

		e, err := domain.NewDirectEvent(domain.EventNotificationCreated, uuid.New(), map[string]string{"text": "hi"})
		require.NoError(t, err)

		raw, err := json.Marshal(e.Envelope())
		require.NoError(t, err)
		require.JSONEq(t, `{"eventKind":"notification.created","payload":{"text":"hi"}}`, string(raw))
	})
}
