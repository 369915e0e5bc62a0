package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MembershipResolver reads room membership from the store on every call.
// Nothing is cached here so a user who left a room never receives its events.
type MembershipResolver struct {
	store MembershipStore
}

func NewMembershipResolver(store MembershipStore) *MembershipResolver {
	return &MembershipResolver{store: store}
}

func (r *MembershipResolver) Members(ctx context.Context, room Room) (map[uuid.UUID]struct{}, error) {
	if err := room.Validate(); err != nil {
		return nil, err
	}

	ids, err := r.store.MembersOf(ctx, room.Kind, room.ID)
	if err != nil {
		return nil, fmt.Errorf("store.MembersOf: %w", err)
	}

	members := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}

	return members, nil
}

func (r *MembershipResolver) IsMember(ctx context.Context, room Room, userID uuid.UUID) (bool, error) {
	members, err := r.Members(ctx, room)
	if err != nil {
		return false, err
	}

	_, ok := members[userID]
	return ok, nil
}
