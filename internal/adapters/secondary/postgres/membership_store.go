package postgres

import (
	"context"
	"fmt"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var membershipQueries = map[domain.RoomKind]string{
	domain.RoomKindConversation: `SELECT user_id FROM conversation_members WHERE conversation_id = $1`,
	domain.RoomKindForum: `SELECT user_id FROM forum_members WHERE forum_id = $1
		UNION SELECT owner_id FROM forums WHERE id = $1`,
	domain.RoomKindEvent: `SELECT user_id FROM event_participants WHERE event_id = $1`,
}

// MembershipStore reads room membership from the forum schema. Each call hits
// the database so it always reflects the latest committed membership.
type MembershipStore struct {
	db Querier
}

func NewMembershipStore(db Querier) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) MembersOf(ctx context.Context, kind domain.RoomKind, roomID uuid.UUID) ([]uuid.UUID, error) {
	query, ok := membershipQueries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRoom, kind)
	}

	rows, err := s.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}

	members, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	return members, nil
}
