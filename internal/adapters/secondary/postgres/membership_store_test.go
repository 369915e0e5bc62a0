package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/postgres"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMembershipStore_MembersOf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it should collect the member ids of a room", func(t *testing.T) {
		t.Parallel()

		alice, bob := uuid.New(), uuid.New()
		db := &fakeQuerier{rows: &fakeRows{rows: [][]any{{alice}, {bob}}}}
		roomID := uuid.New()

		members, err := postgres.NewMembershipStore(db).MembersOf(ctx, domain.RoomKindConversation, roomID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{alice, bob}, members)

		require.Len(t, db.queries, 1)
		require.Contains(t, db.queries[0].sql, "conversation_members")
		require.Equal(t, []any{roomID}, db.queries[0].args)
		require.True(t, db.rows.closed)
	})

	t.Run("it should include the forum owner", func(t *testing.T) {
		t.Parallel()

		db := &fakeQuerier{rows: &fakeRows{}}

		members, err := postgres.NewMembershipStore(db).MembersOf(ctx, domain.RoomKindForum, uuid.New())
		require.NoError(t, err)
		require.Empty(t, members)
		require.Contains(t, db.queries[0].sql, "owner_id")
	})

	t.Run("it should read event participants", func(t *testing.T) {
		t.Parallel()

		db := &fakeQuerier{rows: &fakeRows{}}

		_, err := postgres.NewMembershipStore(db).MembersOf(ctx, domain.RoomKindEvent, uuid.New())
		require.NoError(t, err)
		require.Contains(t, db.queries[0].sql, "event_participants")
	})

	t.Run("it should refuse an unknown kind without querying", func(t *testing.T) {
		t.Parallel()

		db := &fakeQuerier{}

		_, err := postgres.NewMembershipStore(db).MembersOf(ctx, "channel", uuid.New())
		require.ErrorIs(t, err, domain.ErrInvalidRoom)
		require.Empty(t, db.queries)
	})

	t.Run("it should surface query failures", func(t *testing.T) {
		t.Parallel()

		db := &fakeQuerier{err: fmt.Errorf("connection refused")}

		_, err := postgres.NewMembershipStore(db).MembersOf(ctx, domain.RoomKindConversation, uuid.New())
		require.ErrorContains(t, err, "db.Query")
	})

	t.Run("it should surface row errors", func(t *testing.T) {
		t.Parallel()

		db := &fakeQuerier{rows: &fakeRows{err: fmt.Errorf("conn closed")}}

		_, err := postgres.NewMembershipStore(db).MembersOf(ctx, domain.RoomKindConversation, uuid.New())
		require.ErrorContains(t, err, "pgx.CollectRows")
	})
}
